package filter

// Dimension is a groupable attribute used for across and stacks
type Dimension string

// Dimensions
const (
	UserID                 Dimension = "user_id"
	Service                Dimension = "pd_service"
	IncidentPriority       Dimension = "incident_priority"
	IncidentUrgency        Dimension = "incident_urgency"
	Status                 Dimension = "status"
	AlertSeverity          Dimension = "alert_severity"
	IncidentCreatedAt      Dimension = "incident_created_at"
	IncidentResolvedAt     Dimension = "incident_resolved_at"
	IncidentAcknowledgedAt Dimension = "incident_acknowledged_at"
	AlertCreatedAt         Dimension = "alert_created_at"
	AlertResolvedAt        Dimension = "alert_resolved_at"
	AlertAcknowledgedAt    Dimension = "alert_acknowledged_at"
)

// Dimensions lists every dimension in declaration order
var Dimensions = []Dimension{
	UserID, Service, IncidentPriority, IncidentUrgency, Status, AlertSeverity,
	IncidentCreatedAt, IncidentResolvedAt, IncidentAcknowledgedAt,
	AlertCreatedAt, AlertResolvedAt, AlertAcknowledgedAt,
}

// Known reports whether d is a declared dimension
func (d Dimension) Known() bool {
	for _, x := range Dimensions {
		if x == d {
			return true
		}
	}
	return false
}

// IsTime reports whether d buckets a timestamp
func (d Dimension) IsTime() bool {
	switch d {
	case IncidentCreatedAt, IncidentResolvedAt, IncidentAcknowledgedAt,
		AlertCreatedAt, AlertResolvedAt, AlertAcknowledgedAt:
		return true
	}
	return false
}

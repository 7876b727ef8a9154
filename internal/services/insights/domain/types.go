// Package domain holds the insights result entities and collaborator ports
package domain

import "time"

// Incident is one pd_incidents row
type Incident struct {
	ID             string     `json:"id"`
	ServiceID      string     `json:"pd_service_id"`
	PDID           string     `json:"pd_id"`
	Summary        string     `json:"summary"`
	Priority       string     `json:"priority"`
	Urgency        string     `json:"urgency"`
	Status         string     `json:"status"`
	UserID         string     `json:"user_id,omitempty"`
	UserName       string     `json:"user_name,omitempty"`
	AssigneeIDs    []string   `json:"assignee_ids,omitempty"`
	TimeZone       string     `json:"time_zone,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	SolveTime      *int64     `json:"solve_time,omitempty"`
	ResponseTime   *int64     `json:"response_time,omitempty"`
}

// Alert is one pd_alerts row
type Alert struct {
	ID               string     `json:"id"`
	ServiceID        string     `json:"pd_service_id"`
	IncidentID       string     `json:"incident_id,omitempty"`
	PDID             string     `json:"pd_id"`
	Summary          string     `json:"summary"`
	Severity         string     `json:"severity"`
	Status           string     `json:"status"`
	IncidentPriority string     `json:"incident_priority,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	SolveTime        *int64     `json:"solve_time,omitempty"`
	ResponseTime     *int64     `json:"response_time,omitempty"`
}

// ListResult is one page of incidents or alerts; only the slice of the requested family is set
type ListResult struct {
	Incidents []Incident `json:"incidents,omitempty"`
	Alerts    []Alert    `json:"alerts,omitempty"`
	Total     int        `json:"total"`
}

// Page is a zero-based page window
type Page struct {
	Number int `json:"page" validate:"min=0"`
	Size   int `json:"page_size" validate:"min=1"`
}

package filter

// Metric names carried in Bucket.Metrics
const (
	MetricCount  = "count"
	MetricMin    = "min"
	MetricMax    = "max"
	MetricMedian = "median"
	MetricP90    = "p90"
	MetricMean   = "mean"
)

// Bucket is one group of an aggregation
// Key is "" with Null set when the grouped value is null; time buckets carry the UTC
// start as epoch seconds
type Bucket struct {
	Key           string             `json:"key"`
	Null          bool               `json:"null,omitempty"`
	AdditionalKey string             `json:"additional_key,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
	Stacks        []Bucket           `json:"stacks,omitempty"`
}

// Count returns the count metric as an int
func (b Bucket) Count() int { return int(b.Metrics[MetricCount]) }

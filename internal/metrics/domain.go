// Package metrics derives presentation-ready indicators from raw platform
// snapshots. Every computation is a pure function of its inputs; values that
// came out of fallback synthesis stay flagged all the way through.
package metrics

import "time"

// TimeSeriesPoint is one observation in an ascending series. Target is zero
// when the source defines no goal for the period.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target,omitempty"`
}

// Series bundles an ordered list of points with provenance flags.
type Series struct {
	Points      []TimeSeriesPoint `json:"points"`
	IsFallback  bool              `json:"isFallback"`
	DataQuality bool              `json:"dataQuality,omitempty"`
}

// DistributionEntry is one named bucket of a status distribution.
type DistributionEntry struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// StatusDistribution partitions a domain total into named buckets. The entry
// values always sum to Total; percentages sum to ~100 unless Total is zero.
type StatusDistribution struct {
	Entries     []DistributionEntry `json:"entries"`
	Total       float64             `json:"total"`
	IsFallback  bool                `json:"isFallback"`
	DataQuality bool                `json:"dataQuality,omitempty"`
}

// Trend classifies the direction of a metric's movement.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// StableEpsilon is the |changePercent| threshold under which movement is
// reported as stable.
const StableEpsilon = 0.5

// AttainmentStatus classifies a metric's current value against its target.
type AttainmentStatus string

const (
	AttainmentExcellent AttainmentStatus = "excellent"
	AttainmentGood      AttainmentStatus = "good"
	AttainmentWarning   AttainmentStatus = "warning"
)

// Direction states whether larger values are desirable for a metric.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// metricDirections is the static direction table. Direction is a property of
// the metric name, never inferred from the data.
var metricDirections = map[string]Direction{
	"uptime":            HigherIsBetter,
	"active_tenants":    HigherIsBetter,
	"active_users":      HigherIsBetter,
	"mrr":               HigherIsBetter,
	"total_revenue":     HigherIsBetter,
	"retention":         HigherIsBetter,
	"approval_rate":     HigherIsBetter,
	"error_rate":        LowerIsBetter,
	"response_time":     LowerIsBetter,
	"churn":             LowerIsBetter,
	"pending_reviews":   LowerIsBetter,
	"suspended_tenants": LowerIsBetter,
}

// DirectionFor resolves a metric's direction, defaulting to higher-is-better
// for names missing from the table.
func DirectionFor(name string) Direction {
	if d, ok := metricDirections[name]; ok {
		return d
	}
	return HigherIsBetter
}

// PerformanceMetric is a named indicator compared across two periods and
// against a target.
type PerformanceMetric struct {
	Name          string           `json:"name"`
	Current       float64          `json:"current"`
	Previous      float64          `json:"previous"`
	Target        float64          `json:"target"`
	Unit          string           `json:"unit"`
	Trend         Trend            `json:"trend"`
	ChangePercent float64          `json:"changePercent"`
	Status        AttainmentStatus `json:"status"`
	IsFallback    bool             `json:"isFallback"`
}

// Retention summarises period-over-period membership movement.
type Retention struct {
	New        float64 `json:"new"`
	Churned    float64 `json:"churned"`
	NetGrowth  float64 `json:"netGrowth"`
	IsFallback bool    `json:"isFallback"`
}

// Package dashboard composes per-role derived views from capability decisions
// and aggregated metrics. Views are request-scoped value objects; nothing here
// is persisted.
package dashboard

import (
	"time"

	"github.com/meridian-health/meridian/internal/metrics"
	"github.com/meridian-health/meridian/internal/rbac"
)

// Warning records a degraded domain inside an otherwise served view.
type Warning struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// Warning reasons, aligned with the platform error taxonomy.
const (
	ReasonSourceUnavailable  = "SourceUnavailable"
	ReasonDataQuality        = "DataQualityAnomaly"
	ReasonAggregationFailure = "AggregationFailed"
)

// DomainMetrics is one metric domain's derived bundle. IsFallback is true when
// any constituent was synthesized rather than observed.
type DomainMetrics struct {
	IsFallback   bool                        `json:"isFallback"`
	DataQuality  bool                        `json:"dataQuality,omitempty"`
	Summary      []metrics.PerformanceMetric `json:"summary,omitempty"`
	Trend        []metrics.ChartRow          `json:"trend,omitempty"`
	Deltas       []metrics.ChartRow          `json:"deltas,omitempty"`
	Distribution *metrics.StatusDistribution `json:"distribution,omitempty"`
	Regions      *metrics.StatusDistribution `json:"regions,omitempty"`
	Retention    *metrics.Retention          `json:"retention,omitempty"`
}

// View is the per-role dashboard bundle exposed to the presentation layer.
// Cacheable hints that no section degraded, so callers may reuse the view
// within their own staleness window.
type View struct {
	GeneratedAt    time.Time                `json:"generatedAt"`
	Cacheable      bool                     `json:"cacheable"`
	Role           string                   `json:"role"`
	VisibleModules []rbac.Module            `json:"visibleModules"`
	Metrics        map[string]DomainMetrics `json:"metrics"`
	Warnings       []Warning                `json:"warnings"`
}

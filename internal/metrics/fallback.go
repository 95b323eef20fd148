package metrics

import (
	"log/slog"
	"time"
)

// Synthesizer produces structurally valid stand-ins when a source series or
// distribution is missing. Output is derived only from aggregates the platform
// actually knows; it never fabricates history or plausible-looking business
// numbers, and it is always flagged so callers can tell it apart from real
// data.
type Synthesizer struct {
	logger *slog.Logger
}

// NewSynthesizer wires the fallback synthesizer. A nil logger is allowed.
func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// SeriesFallback builds a single-point series from a known aggregate count.
// Negative aggregates are clamped to zero and logged as a data-quality
// anomaly.
func (s *Synthesizer) SeriesFallback(knownTotal float64, at time.Time) Series {
	flagged := false
	if knownTotal < 0 {
		s.warnClamp("series", knownTotal)
		knownTotal = 0
		flagged = true
	}
	return Series{
		Points:      []TimeSeriesPoint{{Timestamp: MonthStart(at), Value: knownTotal}},
		IsFallback:  true,
		DataQuality: flagged,
	}
}

// DistributionFallback builds a one-bucket distribution holding the entire
// known total under "Other".
func (s *Synthesizer) DistributionFallback(knownTotal float64) StatusDistribution {
	flagged := false
	if knownTotal < 0 {
		s.warnClamp("distribution", knownTotal)
		knownTotal = 0
		flagged = true
	}
	percentage := 0.0
	if knownTotal > 0 {
		percentage = 100
	}
	return StatusDistribution{
		Entries:     []DistributionEntry{{Name: "Other", Value: knownTotal, Percentage: percentage}},
		Total:       knownTotal,
		IsFallback:  true,
		DataQuality: flagged,
	}
}

// MetricFallback builds a flat PerformanceMetric from a known current value.
// Previous mirrors current so the change is zero and the trend stable; no
// movement is invented.
func (s *Synthesizer) MetricFallback(name string, current float64, unit string) PerformanceMetric {
	if current < 0 {
		s.warnClamp("metric", current)
		current = 0
	}
	m := NewPerformanceMetric(name, current, current, 0, unit)
	m.IsFallback = true
	return m
}

// SanitizeSeries clamps negative values in a real but inconsistent series to
// zero. The returned series carries the data-quality flag when anything was
// clamped; the request is never aborted for bad points.
func (s *Synthesizer) SanitizeSeries(series Series) Series {
	clamped := false
	points := make([]TimeSeriesPoint, len(series.Points))
	copy(points, series.Points)
	for i := range points {
		if points[i].Value < 0 {
			s.warnClamp("series point", points[i].Value)
			points[i].Value = 0
			clamped = true
		}
	}
	series.Points = points
	if clamped {
		series.DataQuality = true
	}
	return series
}

func (s *Synthesizer) warnClamp(kind string, value float64) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Warn("clamped negative source value", slog.String("kind", kind), slog.Float64("value", value))
}

package metrics

import (
	"math"
	"sort"
	"time"
)

// growthEpsilon guards growth-rate division. Kept tiny so real small
// denominators are still meaningful.
const growthEpsilon = 1e-9

// GrowthRate computes period-over-period growth as a percentage rounded to one
// decimal. The result is always finite: (0,0) is 0 and growth from a zero base
// is reported as 100 (net-new), never Inf or NaN.
func GrowthRate(current, previous float64) float64 {
	if previous <= growthEpsilon && previous >= -growthEpsilon {
		if current <= growthEpsilon && current >= -growthEpsilon {
			return 0
		}
		return 100
	}
	rate := (current - previous) / math.Max(math.Abs(previous), growthEpsilon) * 100
	return Round1(rate)
}

// TrendFor classifies a change percentage into up/down/stable.
func TrendFor(changePercent float64) Trend {
	if math.Abs(changePercent) < StableEpsilon {
		return TrendStable
	}
	if changePercent > 0 {
		return TrendUp
	}
	return TrendDown
}

// NamedCount is an input bucket for distribution building.
type NamedCount struct {
	Name  string
	Value float64
}

// Distribution converts raw bucket counts into a StatusDistribution. Negative
// counts are clamped to zero and flagged as a data-quality anomaly; a zero sum
// yields all-zero percentages with the flag set instead of dividing by zero.
// Entries are ordered by value descending, then name, for stable output.
func Distribution(buckets []NamedCount) StatusDistribution {
	entries := make([]DistributionEntry, 0, len(buckets))
	var total float64
	var flagged bool
	for _, b := range buckets {
		value := b.Value
		if value < 0 {
			value = 0
			flagged = true
		}
		entries = append(entries, DistributionEntry{Name: b.Name, Value: value})
		total += value
	}
	for i := range entries {
		if total > 0 {
			entries[i].Percentage = Round1(entries[i].Value / total * 100)
		} else {
			entries[i].Percentage = 0
			if len(entries) > 0 {
				flagged = true
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Name < entries[j].Name
	})
	return StatusDistribution{Entries: entries, Total: total, DataQuality: flagged}
}

// RollingDeltas derives per-period movement from an ordered series. The first
// point's delta is its raw value, treated as net-new from a zero baseline.
// Input ordering is normalised to chronological before differencing.
func RollingDeltas(points []TimeSeriesPoint) []TimeSeriesPoint {
	if len(points) == 0 {
		return nil
	}
	ordered := make([]TimeSeriesPoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	deltas := make([]TimeSeriesPoint, len(ordered))
	for i, p := range ordered {
		delta := p.Value
		if i > 0 {
			delta = p.Value - ordered[i-1].Value
		}
		deltas[i] = TimeSeriesPoint{Timestamp: p.Timestamp, Value: delta, Target: p.Target}
	}
	return deltas
}

// Attainment classifies current-versus-target honouring the metric's static
// direction. Meeting or beating the target is excellent, landing within 10% of
// it is good, anything further out is a warning.
func Attainment(name string, current, target float64) AttainmentStatus {
	if target == 0 {
		return AttainmentGood
	}
	direction := DirectionFor(name)
	met := current >= target
	if direction == LowerIsBetter {
		met = current <= target
	}
	if met {
		return AttainmentExcellent
	}
	gap := math.Abs(current-target) / math.Abs(target)
	if gap <= 0.10 {
		return AttainmentGood
	}
	return AttainmentWarning
}

// NewPerformanceMetric assembles a PerformanceMetric, deriving change, trend,
// and attainment from the inputs.
func NewPerformanceMetric(name string, current, previous, target float64, unit string) PerformanceMetric {
	change := GrowthRate(current, previous)
	return PerformanceMetric{
		Name:          name,
		Current:       current,
		Previous:      previous,
		Target:        target,
		Unit:          unit,
		ChangePercent: change,
		Trend:         TrendFor(change),
		Status:        Attainment(name, current, target),
	}
}

// ChurnRetention derives membership movement between two period counts.
// Churned is never negative; net growth is new minus churned.
func ChurnRetention(previous, current float64) Retention {
	churned := math.Max(0, previous-current)
	fresh := math.Max(0, current-previous)
	return Retention{
		New:       fresh,
		Churned:   churned,
		NetGrowth: fresh - churned,
	}
}

// AllocationRatio is one share of a proportional split.
type AllocationRatio struct {
	Name  string
	Share float64
}

// DefaultRegionRatios is the documented default split used when only a grand
// total is known and no regional breakdown exists upstream. The shares mirror
// the platform's historical deployment footprint and are fixed: results built
// from them are always flagged as fallback so they cannot pass for a real
// breakdown.
var DefaultRegionRatios = []AllocationRatio{
	{Name: "North", Share: 0.40},
	{Name: "Central", Share: 0.35},
	{Name: "South", Share: 0.25},
}

// Allocate distributes a known total across named buckets using fixed ratios.
// The output is marked as fallback because the breakdown is synthetic.
func Allocate(total float64, ratios []AllocationRatio) StatusDistribution {
	if total < 0 {
		total = 0
	}
	buckets := make([]NamedCount, 0, len(ratios))
	var assigned float64
	for i, ratio := range ratios {
		value := math.Round(total * ratio.Share)
		if i == len(ratios)-1 {
			// Last bucket absorbs rounding drift so values still sum to total.
			value = total - assigned
		}
		assigned += value
		buckets = append(buckets, NamedCount{Name: ratio.Name, Value: value})
	}
	dist := Distribution(buckets)
	dist.IsFallback = true
	return dist
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}

// MonthStart truncates a timestamp to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthRate(t *testing.T) {
	cases := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{"flat", 10, 10, 0},
		{"both zero", 0, 0, 0},
		{"new from zero", 4, 0, 100},
		{"doubled", 20, 10, 100},
		{"halved", 5, 10, -50},
		{"rounded to one decimal", 3, 7, -57.1},
		{"decline to zero", 0, 8, -100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GrowthRate(tc.current, tc.previous))
		})
	}
}

func TestGrowthRateAlwaysFinite(t *testing.T) {
	pairs := [][2]float64{{0, 0}, {5, 0}, {0, 5}, {-3, 0}, {0, -3}, {1e12, 1e-15}, {math.MaxFloat64 / 2, 1}}
	for _, pair := range pairs {
		rate := GrowthRate(pair[0], pair[1])
		require.False(t, math.IsNaN(rate), "NaN for %v", pair)
		require.False(t, math.IsInf(rate, 0), "Inf for %v", pair)
	}
}

func TestTrendFor(t *testing.T) {
	assert.Equal(t, TrendStable, TrendFor(0))
	assert.Equal(t, TrendStable, TrendFor(0.49))
	assert.Equal(t, TrendStable, TrendFor(-0.49))
	assert.Equal(t, TrendUp, TrendFor(0.5))
	assert.Equal(t, TrendDown, TrendFor(-0.5))
	assert.Equal(t, TrendUp, TrendFor(42))
}

func TestDistributionTenantBreakdown(t *testing.T) {
	dist := Distribution([]NamedCount{
		{Name: "pharmacy", Value: 1},
		{Name: "hospital", Value: 3},
	})
	require.Len(t, dist.Entries, 2)
	assert.Equal(t, "hospital", dist.Entries[0].Name)
	assert.Equal(t, 3.0, dist.Entries[0].Value)
	assert.Equal(t, 75.0, dist.Entries[0].Percentage)
	assert.Equal(t, "pharmacy", dist.Entries[1].Name)
	assert.Equal(t, 25.0, dist.Entries[1].Percentage)
	assert.Equal(t, 4.0, dist.Total)
	assert.False(t, dist.DataQuality)
}

func TestDistributionPercentagesSum(t *testing.T) {
	dist := Distribution([]NamedCount{
		{Name: "a", Value: 1}, {Name: "b", Value: 1}, {Name: "c", Value: 1},
	})
	var sum, values float64
	for _, e := range dist.Entries {
		sum += e.Percentage
		values += e.Value
	}
	assert.InDelta(t, 100, sum, 0.5)
	assert.Equal(t, dist.Total, values)
}

func TestDistributionZeroTotal(t *testing.T) {
	dist := Distribution([]NamedCount{{Name: "a", Value: 0}, {Name: "b", Value: 0}})
	for _, e := range dist.Entries {
		assert.Equal(t, 0.0, e.Percentage)
	}
	assert.True(t, dist.DataQuality)
}

func TestDistributionClampsNegatives(t *testing.T) {
	dist := Distribution([]NamedCount{{Name: "ok", Value: 4}, {Name: "broken", Value: -2}})
	assert.Equal(t, 4.0, dist.Total)
	assert.True(t, dist.DataQuality)
	for _, e := range dist.Entries {
		assert.GreaterOrEqual(t, e.Value, 0.0)
	}
}

func TestRollingDeltas(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []TimeSeriesPoint{
		{Timestamp: base, Value: 5},
		{Timestamp: base.AddDate(0, 1, 0), Value: 8},
		{Timestamp: base.AddDate(0, 2, 0), Value: 6},
	}
	deltas := RollingDeltas(points)
	require.Len(t, deltas, 3)
	assert.Equal(t, 5.0, deltas[0].Value, "first delta is the raw value")
	assert.Equal(t, 3.0, deltas[1].Value)
	assert.Equal(t, -2.0, deltas[2].Value)
}

func TestRollingDeltasReordersInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []TimeSeriesPoint{
		{Timestamp: base.AddDate(0, 1, 0), Value: 9},
		{Timestamp: base, Value: 4},
	}
	deltas := RollingDeltas(points)
	require.Len(t, deltas, 2)
	assert.Equal(t, 4.0, deltas[0].Value)
	assert.Equal(t, 5.0, deltas[1].Value)
}

func TestAttainment(t *testing.T) {
	cases := []struct {
		name    string
		metric  string
		current float64
		target  float64
		want    AttainmentStatus
	}{
		{"uptime beats target", "uptime", 99.99, 99.9, AttainmentExcellent},
		{"uptime just below target", "uptime", 99.5, 99.9, AttainmentGood},
		{"uptime far below target", "uptime", 80, 99.9, AttainmentWarning},
		{"error rate under target", "error_rate", 0.2, 0.5, AttainmentExcellent},
		{"error rate near target", "error_rate", 0.52, 0.5, AttainmentGood},
		{"error rate blown out", "error_rate", 2.0, 0.5, AttainmentWarning},
		{"response time lower is better", "response_time", 120, 200, AttainmentExcellent},
		{"no target", "mrr", 500, 0, AttainmentGood},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Attainment(tc.metric, tc.current, tc.target))
		})
	}
}

func TestNewPerformanceMetric(t *testing.T) {
	m := NewPerformanceMetric("active_users", 110, 100, 120, "users")
	assert.Equal(t, 10.0, m.ChangePercent)
	assert.Equal(t, TrendUp, m.Trend)
	assert.Equal(t, AttainmentGood, m.Status)
	assert.False(t, m.IsFallback)

	flat := NewPerformanceMetric("active_tenants", 10, 10, 10, "tenants")
	assert.Equal(t, TrendStable, flat.Trend)
	assert.Equal(t, AttainmentExcellent, flat.Status)
}

func TestChurnRetention(t *testing.T) {
	shrunk := ChurnRetention(12, 9)
	assert.Equal(t, 3.0, shrunk.Churned)
	assert.Equal(t, 0.0, shrunk.New)
	assert.Equal(t, -3.0, shrunk.NetGrowth)

	grown := ChurnRetention(9, 12)
	assert.Equal(t, 0.0, grown.Churned)
	assert.Equal(t, 3.0, grown.New)
	assert.Equal(t, 3.0, grown.NetGrowth)

	flat := ChurnRetention(7, 7)
	assert.Equal(t, 0.0, flat.Churned)
	assert.Equal(t, 0.0, flat.NetGrowth)
}

func TestAllocate(t *testing.T) {
	dist := Allocate(10, DefaultRegionRatios)
	assert.True(t, dist.IsFallback, "synthetic breakdowns must be flagged")
	assert.Equal(t, 10.0, dist.Total)
	var sum float64
	for _, e := range dist.Entries {
		sum += e.Value
	}
	assert.Equal(t, 10.0, sum, "allocation preserves the total despite rounding")
}

func TestAllocateNegativeTotal(t *testing.T) {
	dist := Allocate(-5, DefaultRegionRatios)
	assert.Equal(t, 0.0, dist.Total)
	assert.True(t, dist.IsFallback)
}

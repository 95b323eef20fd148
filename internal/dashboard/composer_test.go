package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-health/meridian/internal/metrics"
	"github.com/meridian-health/meridian/internal/metricsource"
	"github.com/meridian-health/meridian/internal/rbac"
)

type stubSource struct {
	snapshots map[metricsource.Domain]metricsource.Snapshot
	requested []metricsource.Domain
}

func (s *stubSource) FetchAll(ctx context.Context, domains []metricsource.Domain) map[metricsource.Domain]metricsource.Snapshot {
	s.requested = domains
	out := make(map[metricsource.Domain]metricsource.Snapshot, len(domains))
	for _, domain := range domains {
		snap, ok := s.snapshots[domain]
		if !ok {
			snap = metricsource.Snapshot{Domain: domain, Available: false, Reason: "not stubbed"}
		}
		out[domain] = snap
	}
	return out
}

func healthySnapshots() map[metricsource.Domain]metricsource.Snapshot {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stats := &metricsource.PlatformStats{}
	stats.Tenants.Monthly = []metricsource.SeriesPoint{
		{Timestamp: now.AddDate(0, -1, 0), Value: 3},
		{Timestamp: now, Value: 4},
	}
	stats.Users.ActiveMonthly = []metricsource.SeriesPoint{
		{Timestamp: now.AddDate(0, -1, 0), Value: 90},
		{Timestamp: now, Value: 96, Target: 100},
	}
	stats.Users.ByRole = []metricsource.BucketCount{
		{Name: "physician", Value: 30}, {Name: "nurse", Value: 66},
	}
	stats.System.Metrics = []metricsource.MetricSample{
		{Name: "uptime", Current: 99.95, Previous: 99.9, Target: 99.9, Unit: "%"},
		{Name: "error_rate", Current: 0.4, Previous: 0.6, Target: 0.5, Unit: "%"},
	}

	pm := &metricsource.PlatformMetrics{
		TotalTenants: 4, ActiveTenants: 4, TotalUsers: 120, TotalPatients: 900,
		MonthlyRevenue: 5400, TotalRevenue: 61000,
		TenantBreakdown: map[string]int{"hospital": 3, "pharmacy": 1},
	}
	tenants := []metricsource.Tenant{
		{ID: "t-1", Type: "hospital", IsActive: true},
		{ID: "t-2", Type: "hospital", IsActive: true},
		{ID: "t-3", Type: "hospital", IsActive: true},
		{ID: "t-4", Type: "pharmacy", IsActive: true},
	}

	return map[metricsource.Domain]metricsource.Snapshot{
		metricsource.DomainTenantGrowth: {
			Domain: metricsource.DomainTenantGrowth, Available: true, FetchedAt: now,
			PlatformMetrics: pm, Tenants: tenants, Stats: stats,
		},
		metricsource.DomainUserActivity: {
			Domain: metricsource.DomainUserActivity, Available: true, FetchedAt: now, Stats: stats,
		},
		metricsource.DomainRevenue: {
			Domain: metricsource.DomainRevenue, Available: true, FetchedAt: now,
			Revenue: &metricsource.SubscriptionRevenue{
				Success: true, MRR: 5400, TotalRevenue: 61000, Subscriptions: 4, Customers: 4, Churn: 2.5,
				Plans: []metricsource.PlanRevenue{{Name: "hospital", MRR: 4200, Count: 2}, {Name: "clinic", MRR: 1200, Count: 2}},
			},
		},
		metricsource.DomainSystemHealth: {
			Domain: metricsource.DomainSystemHealth, Available: true, FetchedAt: now, Stats: stats,
		},
		metricsource.DomainSupplierStatus: {
			Domain: metricsource.DomainSupplierStatus, Available: true, FetchedAt: now,
			Suppliers: []metricsource.SupplierRegistration{
				{ID: "s-1", Status: "approved"},
				{ID: "s-2", Status: "approved"},
				{ID: "s-3", Status: "pending_review"},
			},
		},
	}
}

func newTestComposer(t *testing.T, source SourceClient) *Composer {
	t.Helper()
	registry, err := rbac.NewRegistry()
	require.NoError(t, err)
	return NewComposer(rbac.NewResolver(registry), source, metrics.NewSynthesizer(nil), nil, nil)
}

func principalFor(role rbac.Role) rbac.Principal {
	tenantID := uuid.New()
	p := rbac.Principal{ID: uuid.New(), Role: role, TenantID: &tenantID}
	if role == rbac.RolePlatformOwner {
		p.TenantID = nil
	}
	return p
}

func TestComposeHealthyPlatformOwner(t *testing.T) {
	source := &stubSource{snapshots: healthySnapshots()}
	composer := newTestComposer(t, source)

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	assert.Len(t, source.requested, len(metricsource.Domains()), "owner sees every domain")
	assert.Empty(t, view.Warnings)
	assert.True(t, view.Cacheable)
	assert.False(t, view.GeneratedAt.IsZero())

	growth := view.Metrics[string(metricsource.DomainTenantGrowth)]
	assert.False(t, growth.IsFallback)
	require.NotNil(t, growth.Distribution)
	require.Len(t, growth.Distribution.Entries, 2)
	assert.Equal(t, "hospital", growth.Distribution.Entries[0].Name)
	assert.Equal(t, 3.0, growth.Distribution.Entries[0].Value)
	assert.Equal(t, 75.0, growth.Distribution.Entries[0].Percentage)
	assert.Equal(t, "pharmacy", growth.Distribution.Entries[1].Name)
	assert.Equal(t, 25.0, growth.Distribution.Entries[1].Percentage)

	require.NotNil(t, growth.Regions)
	assert.True(t, growth.Regions.IsFallback, "allocated breakdowns always stay flagged")

	health := view.Metrics[string(metricsource.DomainSystemHealth)]
	require.Len(t, health.Summary, 2)
	assert.Equal(t, metrics.AttainmentExcellent, health.Summary[0].Status)
}

func TestComposeRevenueUnavailableForTenantAdmin(t *testing.T) {
	snaps := healthySnapshots()
	snaps[metricsource.DomainRevenue] = metricsource.Snapshot{
		Domain: metricsource.DomainRevenue, Available: false, Reason: "billing processor not configured",
	}
	source := &stubSource{snapshots: snaps}
	composer := newTestComposer(t, source)

	view, err := composer.Compose(context.Background(), principalFor(rbac.RoleTenantAdmin))
	require.NoError(t, err)

	revenue, ok := view.Metrics[string(metricsource.DomainRevenue)]
	require.True(t, ok, "degraded revenue still renders a flagged section")
	assert.True(t, revenue.IsFallback)

	assert.Contains(t, view.Warnings, Warning{Domain: "revenue", Reason: ReasonSourceUnavailable})
	assert.False(t, view.Cacheable)

	// Non-revenue entitlements are untouched.
	assert.Contains(t, view.VisibleModules, rbac.ModuleUsers)
	assert.Contains(t, view.VisibleModules, rbac.ModuleAuditLogs)
	users := view.Metrics[string(metricsource.DomainUserActivity)]
	assert.False(t, users.IsFallback)
}

func TestComposeRevenueFallbackUsesLedgerAggregates(t *testing.T) {
	snaps := healthySnapshots()
	snaps[metricsource.DomainRevenue] = metricsource.Snapshot{Domain: metricsource.DomainRevenue, Available: false}
	composer := newTestComposer(t, &stubSource{snapshots: snaps})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	revenue := view.Metrics[string(metricsource.DomainRevenue)]
	require.Len(t, revenue.Summary, 2)
	assert.Equal(t, "mrr", revenue.Summary[0].Name)
	assert.Equal(t, 5400.0, revenue.Summary[0].Current, "fallback derives from the internal ledger aggregate")
	assert.True(t, revenue.Summary[0].IsFallback)
	assert.Equal(t, metrics.TrendStable, revenue.Summary[0].Trend, "no movement is fabricated")
}

func ledgerRevenueSeries() []metricsource.SeriesPoint {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return []metricsource.SeriesPoint{
		{Timestamp: now.AddDate(0, -1, 0), Value: 5000},
		{Timestamp: now, Value: 5400},
	}
}

func TestComposeRevenueTrendsFromLedgerSeries(t *testing.T) {
	snaps := healthySnapshots()
	snaps[metricsource.DomainTenantGrowth].Stats.Business.RevenueMonthly = ledgerRevenueSeries()
	composer := newTestComposer(t, &stubSource{snapshots: snaps})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	revenue := view.Metrics[string(metricsource.DomainRevenue)]
	assert.False(t, revenue.IsFallback)

	// Previous period comes from the internal ledger, current from the
	// processor, so real history moves changePercent.
	mrr := revenue.Summary[0]
	assert.Equal(t, "mrr", mrr.Name)
	assert.Equal(t, 5400.0, mrr.Current)
	assert.Equal(t, 5000.0, mrr.Previous)
	assert.Equal(t, 8.0, mrr.ChangePercent)
	assert.Equal(t, metrics.TrendUp, mrr.Trend)

	require.Len(t, revenue.Trend, 2)
	assert.Equal(t, "Jul 2026", revenue.Trend[0].Period)
	require.Len(t, revenue.Deltas, 2)
}

func TestComposeRevenueFallbackUsesLedgerSeries(t *testing.T) {
	snaps := healthySnapshots()
	snaps[metricsource.DomainTenantGrowth].Stats.Business.RevenueMonthly = ledgerRevenueSeries()
	snaps[metricsource.DomainRevenue] = metricsource.Snapshot{Domain: metricsource.DomainRevenue, Available: false}
	composer := newTestComposer(t, &stubSource{snapshots: snaps})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	revenue := view.Metrics[string(metricsource.DomainRevenue)]
	assert.True(t, revenue.IsFallback)

	mrr := revenue.Summary[0]
	assert.Equal(t, 5400.0, mrr.Current)
	assert.Equal(t, 5000.0, mrr.Previous, "ledger history supplies the comparison leg")
	assert.Equal(t, 8.0, mrr.ChangePercent)
	assert.True(t, mrr.IsFallback)
	require.Len(t, revenue.Trend, 2)

	assert.Contains(t, view.Warnings, Warning{Domain: "revenue", Reason: ReasonSourceUnavailable})
}

func TestComposeGrowthScenarios(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("flat counts report stable", func(t *testing.T) {
		snaps := healthySnapshots()
		snap := snaps[metricsource.DomainTenantGrowth]
		snap.Stats.Tenants.Monthly = []metricsource.SeriesPoint{
			{Timestamp: now.AddDate(0, -1, 0), Value: 10},
			{Timestamp: now, Value: 10},
		}
		snap.PlatformMetrics.ActiveTenants = 10
		composer := newTestComposer(t, &stubSource{snapshots: snaps})

		view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
		require.NoError(t, err)
		growth := view.Metrics[string(metricsource.DomainTenantGrowth)].Summary[0]
		assert.Equal(t, 0.0, growth.ChangePercent)
		assert.Equal(t, metrics.TrendStable, growth.Trend)
	})

	t.Run("growth from zero reports one hundred percent up", func(t *testing.T) {
		snaps := healthySnapshots()
		snap := snaps[metricsource.DomainTenantGrowth]
		snap.Stats.Tenants.Monthly = []metricsource.SeriesPoint{
			{Timestamp: now.AddDate(0, -1, 0), Value: 0},
			{Timestamp: now, Value: 4},
		}
		snap.PlatformMetrics.ActiveTenants = 4
		composer := newTestComposer(t, &stubSource{snapshots: snaps})

		view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
		require.NoError(t, err)
		growth := view.Metrics[string(metricsource.DomainTenantGrowth)].Summary[0]
		assert.Equal(t, 100.0, growth.ChangePercent)
		assert.Equal(t, metrics.TrendUp, growth.Trend)
	})

	t.Run("both growth legs come from the monthly series", func(t *testing.T) {
		snaps := healthySnapshots()
		snap := snaps[metricsource.DomainTenantGrowth]
		snap.Stats.Tenants.Monthly = []metricsource.SeriesPoint{
			{Timestamp: now.AddDate(0, -1, 0), Value: 8},
			{Timestamp: now, Value: 10},
		}
		// An active count diverging from the series total must not bleed
		// into the comparison.
		snap.PlatformMetrics.ActiveTenants = 9
		composer := newTestComposer(t, &stubSource{snapshots: snaps})

		view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
		require.NoError(t, err)
		growth := view.Metrics[string(metricsource.DomainTenantGrowth)].Summary[0]
		assert.Equal(t, 10.0, growth.Current)
		assert.Equal(t, 8.0, growth.Previous)
		assert.Equal(t, 25.0, growth.ChangePercent)
	})
}

func TestComposePatientSeesOnlyBillingDomain(t *testing.T) {
	source := &stubSource{snapshots: healthySnapshots()}
	composer := newTestComposer(t, source)

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePatient))
	require.NoError(t, err)

	assert.NotContains(t, view.VisibleModules, rbac.ModuleAuditLogs)
	// Billing is visible to patients, so the revenue domain is fetched; the
	// platform-wide domains are not.
	assert.Contains(t, source.requested, metricsource.DomainRevenue)
	assert.NotContains(t, source.requested, metricsource.DomainTenantGrowth)
	assert.NotContains(t, source.requested, metricsource.DomainSystemHealth)
}

func TestComposeUnknownRoleFails(t *testing.T) {
	composer := newTestComposer(t, &stubSource{snapshots: healthySnapshots()})
	_, err := composer.Compose(context.Background(), rbac.Principal{Role: rbac.Role("ghost")})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestComposeDataQualityClamping(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	snaps := healthySnapshots()
	snap := snaps[metricsource.DomainTenantGrowth]
	snap.Stats.Tenants.Monthly = []metricsource.SeriesPoint{
		{Timestamp: now.AddDate(0, -1, 0), Value: -5},
		{Timestamp: now, Value: 4},
	}
	composer := newTestComposer(t, &stubSource{snapshots: snaps})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	growth := view.Metrics[string(metricsource.DomainTenantGrowth)]
	assert.True(t, growth.DataQuality)
	for _, row := range growth.Trend {
		assert.GreaterOrEqual(t, row.Value, 0.0)
	}
	assert.Contains(t, view.Warnings, Warning{Domain: "tenant_growth", Reason: ReasonDataQuality})
	assert.False(t, view.Cacheable)
}

func TestComposeFallbackPropagates(t *testing.T) {
	snaps := healthySnapshots()
	snap := snaps[metricsource.DomainTenantGrowth]
	snap.Stats = nil // no series upstream, only aggregates
	snaps[metricsource.DomainTenantGrowth] = snap
	composer := newTestComposer(t, &stubSource{snapshots: snaps})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	growth := view.Metrics[string(metricsource.DomainTenantGrowth)]
	assert.True(t, growth.IsFallback, "fallback series marks the whole section")
	require.NotNil(t, growth.Retention)
	assert.True(t, growth.Retention.IsFallback, "derived retention inherits the flag")
	require.Len(t, growth.Summary, 1)
	assert.True(t, growth.Summary[0].IsFallback)
}

func TestComposeSupplierDistribution(t *testing.T) {
	composer := newTestComposer(t, &stubSource{snapshots: healthySnapshots()})

	view, err := composer.Compose(context.Background(), principalFor(rbac.RolePlatformOwner))
	require.NoError(t, err)

	suppliers := view.Metrics[string(metricsource.DomainSupplierStatus)]
	require.NotNil(t, suppliers.Distribution)
	assert.Equal(t, 3.0, suppliers.Distribution.Total)
	assert.Equal(t, "approved", suppliers.Distribution.Entries[0].Name)
	require.Len(t, suppliers.Summary, 1)
	assert.Equal(t, 1.0, suppliers.Summary[0].Current)
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/meridian-health/meridian/internal/metrics"
	"github.com/meridian-health/meridian/internal/metricsource"
	"github.com/meridian-health/meridian/internal/rbac"
)

// ErrUnknownRole is the only fatal composition error: without a resolvable
// role nothing can be rendered for the caller.
var ErrUnknownRole = errors.New("dashboard: unknown role")

// SourceClient is the slice of metricsource the composer depends on.
type SourceClient interface {
	FetchAll(ctx context.Context, domains []metricsource.Domain) map[metricsource.Domain]metricsource.Snapshot
}

// ComposeRecorder receives composition observations. Implemented by the
// observability metrics; nil disables instrumentation.
type ComposeRecorder interface {
	ObserveFallback(domain string)
	ObserveCompose(role string, d time.Duration)
}

// domainModules gates each metric domain behind the module a role must see for
// the domain to be fetched at all.
var domainModules = map[metricsource.Domain]rbac.Module{
	metricsource.DomainTenantGrowth:   rbac.ModuleTenants,
	metricsource.DomainUserActivity:   rbac.ModuleUsers,
	metricsource.DomainRevenue:        rbac.ModuleBilling,
	metricsource.DomainSystemHealth:   rbac.ModuleSystemHealth,
	metricsource.DomainSupplierStatus: rbac.ModuleSuppliers,
}

// Composer assembles DerivedDashboardViews for principals.
type Composer struct {
	resolver *rbac.Resolver
	source   SourceClient
	synth    *metrics.Synthesizer
	logger   *slog.Logger
	recorder ComposeRecorder
	clock    func() time.Time
}

// NewComposer wires the composer. Logger and recorder may be nil.
func NewComposer(resolver *rbac.Resolver, source SourceClient, synth *metrics.Synthesizer, logger *slog.Logger, recorder ComposeRecorder) *Composer {
	return &Composer{
		resolver: resolver,
		source:   source,
		synth:    synth,
		logger:   logger,
		recorder: recorder,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Compose builds the derived view for the principal: resolve visible modules,
// fetch only the domains those modules need, derive each section, and tolerate
// partial results. Only one snapshot fetch round trips per request; everything
// after the join point is pure computation.
func (c *Composer) Compose(ctx context.Context, principal rbac.Principal) (View, error) {
	if !principal.Role.Valid() {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownRole, principal.Role)
	}
	start := c.clock()

	visible := c.resolver.VisibleModules(principal)
	visibleSet := make(map[rbac.Module]struct{}, len(visible))
	for _, m := range visible {
		visibleSet[m] = struct{}{}
	}

	var domains []metricsource.Domain
	for _, domain := range metricsource.Domains() {
		if _, ok := visibleSet[domainModules[domain]]; ok {
			domains = append(domains, domain)
		}
	}

	view := View{
		GeneratedAt:    start,
		Role:           string(principal.Role),
		VisibleModules: visible,
		Metrics:        make(map[string]DomainMetrics, len(domains)),
		Warnings:       []Warning{},
	}
	if len(domains) == 0 {
		view.Cacheable = true
		c.observeCompose(principal, start)
		return view, nil
	}

	snapshots := c.source.FetchAll(ctx, domains)

	// The tenant-growth snapshot doubles as the internal ledger feed for the
	// revenue section: aggregate counts for sibling fallbacks and the monthly
	// revenue series for the previous-period comparison.
	var platform *metricsource.PlatformMetrics
	var ledger *metricsource.PlatformStats
	if snap, ok := snapshots[metricsource.DomainTenantGrowth]; ok && snap.Available {
		platform = snap.PlatformMetrics
		ledger = snap.Stats
	}

	for _, domain := range domains {
		snap := snapshots[domain]
		section, err := c.buildSection(domain, snap, platform, ledger)
		if err != nil {
			c.warnf("omit section after aggregation failure", domain, err)
			view.Warnings = append(view.Warnings, Warning{Domain: string(domain), Reason: ReasonAggregationFailure})
			continue
		}
		if !snap.Available {
			view.Warnings = append(view.Warnings, Warning{Domain: string(domain), Reason: ReasonSourceUnavailable})
			c.observeFallback(domain)
		} else if section.DataQuality {
			view.Warnings = append(view.Warnings, Warning{Domain: string(domain), Reason: ReasonDataQuality})
		}
		view.Metrics[string(domain)] = section
	}

	sort.Slice(view.Warnings, func(i, j int) bool { return view.Warnings[i].Domain < view.Warnings[j].Domain })
	view.Cacheable = len(view.Warnings) == 0
	for _, section := range view.Metrics {
		if section.IsFallback {
			view.Cacheable = false
			break
		}
	}
	c.observeCompose(principal, start)
	return view, nil
}

// buildSection derives one domain's bundle. A panic inside a builder is
// converted into an error so a single bad section never takes down the view.
func (c *Composer) buildSection(domain metricsource.Domain, snap metricsource.Snapshot, platform *metricsource.PlatformMetrics, ledger *metricsource.PlatformStats) (section DomainMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dashboard: %s aggregation panicked: %v", domain, r)
		}
	}()
	switch domain {
	case metricsource.DomainTenantGrowth:
		section = c.buildTenantGrowth(snap)
	case metricsource.DomainUserActivity:
		section = c.buildUserActivity(snap, platform)
	case metricsource.DomainRevenue:
		section = c.buildRevenue(snap, platform, ledger)
	case metricsource.DomainSystemHealth:
		section = c.buildSystemHealth(snap)
	case metricsource.DomainSupplierStatus:
		section = c.buildSupplierStatus(snap)
	default:
		err = fmt.Errorf("dashboard: no builder for domain %q", domain)
	}
	return section, err
}

func (c *Composer) buildTenantGrowth(snap metricsource.Snapshot) DomainMetrics {
	if !snap.Available || snap.PlatformMetrics == nil {
		series := c.synth.SeriesFallback(0, c.clock())
		dist := c.synth.DistributionFallback(0)
		return DomainMetrics{
			IsFallback:   true,
			Trend:        metrics.SeriesRows(series),
			Distribution: &dist,
		}
	}
	pm := snap.PlatformMetrics
	total := float64(pm.TotalTenants)

	var series metrics.Series
	if snap.Stats != nil && len(snap.Stats.Tenants.Monthly) > 0 {
		series = c.synth.SanitizeSeries(metrics.Series{Points: toPoints(snap.Stats.Tenants.Monthly)})
	} else {
		series = c.synth.SeriesFallback(total, snap.FetchedAt)
		c.observeFallback(snap.Domain)
	}

	dist := c.tenantBreakdown(snap, total)

	// Both legs of the growth comparison come from the same monthly series;
	// mixing the live active count with a historical total point would skew
	// the change whenever active and total diverge.
	current, previous := lastTwo(series.Points)
	growth := metrics.NewPerformanceMetric("active_tenants", current, previous, 0, "tenants")
	if series.IsFallback {
		growth = c.synth.MetricFallback("active_tenants", float64(pm.ActiveTenants), "tenants")
	}
	retention := metrics.ChurnRetention(previous, current)
	retention.IsFallback = series.IsFallback

	regions := metrics.Allocate(total, metrics.DefaultRegionRatios)

	return DomainMetrics{
		IsFallback:   series.IsFallback || dist.IsFallback,
		DataQuality:  series.DataQuality || dist.DataQuality,
		Summary:      []metrics.PerformanceMetric{growth},
		Trend:        metrics.SeriesRows(series),
		Deltas:       metrics.SeriesRows(metrics.Series{Points: metrics.RollingDeltas(series.Points)}),
		Distribution: &dist,
		Regions:      &regions,
		Retention:    &retention,
	}
}

// tenantBreakdown prefers the live tenant list, falls back to the aggregate
// breakdown map, and synthesizes a single bucket only when both are missing.
func (c *Composer) tenantBreakdown(snap metricsource.Snapshot, total float64) metrics.StatusDistribution {
	if len(snap.Tenants) > 0 {
		counts := make(map[string]float64)
		for _, t := range snap.Tenants {
			counts[t.Type]++
		}
		return metrics.Distribution(toBuckets(counts))
	}
	if pm := snap.PlatformMetrics; pm != nil && len(pm.TenantBreakdown) > 0 {
		counts := make(map[string]float64, len(pm.TenantBreakdown))
		for name, value := range pm.TenantBreakdown {
			counts[name] = float64(value)
		}
		return metrics.Distribution(toBuckets(counts))
	}
	c.observeFallback(snap.Domain)
	return c.synth.DistributionFallback(total)
}

func (c *Composer) buildUserActivity(snap metricsource.Snapshot, platform *metricsource.PlatformMetrics) DomainMetrics {
	if !snap.Available || snap.Stats == nil {
		known := 0.0
		if platform != nil {
			known = float64(platform.TotalUsers)
		}
		series := c.synth.SeriesFallback(known, c.clock())
		dist := c.synth.DistributionFallback(known)
		return DomainMetrics{
			IsFallback:   true,
			Summary:      []metrics.PerformanceMetric{c.synth.MetricFallback("active_users", known, "users")},
			Trend:        metrics.SeriesRows(series),
			Distribution: &dist,
		}
	}
	series := c.synth.SanitizeSeries(metrics.Series{Points: toPoints(snap.Stats.Users.ActiveMonthly)})
	dist := metrics.Distribution(fromBucketCounts(snap.Stats.Users.ByRole))

	current, previous := lastTwoWithTarget(series.Points)
	active := metrics.NewPerformanceMetric("active_users", current.Value, previous, current.Target, "users")
	retention := metrics.ChurnRetention(previous, current.Value)

	return DomainMetrics{
		IsFallback:   false,
		DataQuality:  series.DataQuality || dist.DataQuality,
		Summary:      []metrics.PerformanceMetric{active},
		Trend:        metrics.SeriesRows(series),
		Deltas:       metrics.SeriesRows(metrics.Series{Points: metrics.RollingDeltas(series.Points)}),
		Distribution: &dist,
		Retention:    &retention,
	}
}

func (c *Composer) buildRevenue(snap metricsource.Snapshot, platform *metricsource.PlatformMetrics, ledger *metricsource.PlatformStats) DomainMetrics {
	// The internal ledger's monthly revenue series supplies the historical
	// leg; the external processor only reports the current period.
	var series metrics.Series
	haveSeries := false
	if ledger != nil && len(ledger.Business.RevenueMonthly) > 0 {
		series = c.synth.SanitizeSeries(metrics.Series{Points: toPoints(ledger.Business.RevenueMonthly)})
		haveSeries = true
	}

	if !snap.Available || snap.Revenue == nil {
		// The internal ledger is the only trustworthy source when the billing
		// processor is dark.
		mrr, total := 0.0, 0.0
		if platform != nil {
			mrr = platform.MonthlyRevenue
			total = platform.TotalRevenue
		}
		section := DomainMetrics{
			IsFallback: true,
			Summary: []metrics.PerformanceMetric{
				c.synth.MetricFallback("mrr", mrr, "usd"),
				c.synth.MetricFallback("total_revenue", total, "usd"),
			},
		}
		if haveSeries {
			if len(series.Points) >= 2 {
				current, previous := lastTwo(series.Points)
				ledgerMRR := metrics.NewPerformanceMetric("mrr", current, previous, 0, "usd")
				ledgerMRR.IsFallback = true
				section.Summary[0] = ledgerMRR
			}
			section.Trend = metrics.SeriesRows(series)
			section.DataQuality = series.DataQuality
		}
		return section
	}
	rev := snap.Revenue

	buckets := make([]metrics.NamedCount, 0, len(rev.Plans))
	for _, plan := range rev.Plans {
		buckets = append(buckets, metrics.NamedCount{Name: plan.Name, Value: plan.MRR})
	}
	dist := metrics.Distribution(buckets)

	previous := rev.MRR
	if haveSeries && len(series.Points) >= 2 {
		_, previous = lastTwo(series.Points)
	}
	summary := []metrics.PerformanceMetric{
		metrics.NewPerformanceMetric("mrr", rev.MRR, previous, 0, "usd"),
		metrics.NewPerformanceMetric("churn", rev.Churn, rev.Churn, 5, "%"),
	}
	section := DomainMetrics{
		IsFallback:   false,
		DataQuality:  dist.DataQuality,
		Summary:      summary,
		Distribution: &dist,
	}
	if haveSeries {
		section.Trend = metrics.SeriesRows(series)
		section.Deltas = metrics.SeriesRows(metrics.Series{Points: metrics.RollingDeltas(series.Points)})
		section.DataQuality = section.DataQuality || series.DataQuality
	}
	return section
}

func (c *Composer) buildSystemHealth(snap metricsource.Snapshot) DomainMetrics {
	if !snap.Available || snap.Stats == nil {
		// No aggregate exists from which health could honestly be derived;
		// the section stays empty and flagged rather than inventing numbers.
		return DomainMetrics{IsFallback: true}
	}
	summary := make([]metrics.PerformanceMetric, 0, len(snap.Stats.System.Metrics))
	for _, sample := range snap.Stats.System.Metrics {
		summary = append(summary, metrics.NewPerformanceMetric(sample.Name, sample.Current, sample.Previous, sample.Target, sample.Unit))
	}
	return DomainMetrics{Summary: summary}
}

func (c *Composer) buildSupplierStatus(snap metricsource.Snapshot) DomainMetrics {
	if !snap.Available {
		dist := c.synth.DistributionFallback(0)
		return DomainMetrics{IsFallback: true, Distribution: &dist}
	}
	counts := map[string]float64{}
	for _, supplier := range snap.Suppliers {
		counts[supplier.Status]++
	}
	dist := metrics.Distribution(toBuckets(counts))
	pending := counts["pending_review"]
	summary := []metrics.PerformanceMetric{
		metrics.NewPerformanceMetric("pending_reviews", pending, pending, 0, "registrations"),
	}
	return DomainMetrics{
		DataQuality:  dist.DataQuality,
		Summary:      summary,
		Distribution: &dist,
	}
}

func (c *Composer) observeFallback(domain metricsource.Domain) {
	if c.recorder != nil {
		c.recorder.ObserveFallback(string(domain))
	}
}

func (c *Composer) observeCompose(principal rbac.Principal, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveCompose(string(principal.Role), c.clock().Sub(start))
	}
}

func (c *Composer) warnf(msg string, domain metricsource.Domain, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.String("domain", string(domain)), slog.Any("error", err))
	}
}

func toPoints(points []metricsource.SeriesPoint) []metrics.TimeSeriesPoint {
	out := make([]metrics.TimeSeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, metrics.TimeSeriesPoint{Timestamp: p.Timestamp, Value: p.Value, Target: p.Target})
	}
	return out
}

func toBuckets(counts map[string]float64) []metrics.NamedCount {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	buckets := make([]metrics.NamedCount, 0, len(names))
	for _, name := range names {
		buckets = append(buckets, metrics.NamedCount{Name: name, Value: counts[name]})
	}
	return buckets
}

func fromBucketCounts(counts []metricsource.BucketCount) []metrics.NamedCount {
	buckets := make([]metrics.NamedCount, 0, len(counts))
	for _, b := range counts {
		buckets = append(buckets, metrics.NamedCount{Name: b.Name, Value: b.Value})
	}
	return buckets
}

// lastTwo returns the final value and the one before it; a single point's
// predecessor is zero (net-new baseline).
func lastTwo(points []metrics.TimeSeriesPoint) (current, previous float64) {
	switch len(points) {
	case 0:
		return 0, 0
	case 1:
		return points[0].Value, 0
	default:
		return points[len(points)-1].Value, points[len(points)-2].Value
	}
}

func lastTwoWithTarget(points []metrics.TimeSeriesPoint) (current metrics.TimeSeriesPoint, previous float64) {
	switch len(points) {
	case 0:
		return metrics.TimeSeriesPoint{}, 0
	case 1:
		return points[0], 0
	default:
		return points[len(points)-1], points[len(points)-2].Value
	}
}

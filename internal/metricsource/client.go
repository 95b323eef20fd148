package metricsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// FetchRecorder receives fetch outcome observations. Implemented by the
// observability metrics; a nil recorder disables instrumentation.
type FetchRecorder interface {
	ObserveSourceFetch(domain, outcome string)
}

// Config bounds the client's upstream interactions.
type Config struct {
	// DataServiceURL is the internal platform data service base URL.
	DataServiceURL string
	// BillingServiceURL is the external billing processor base URL. Empty
	// means the integration is not configured.
	BillingServiceURL string
	// DomainTimeout bounds each domain's entire fetch.
	DomainTimeout time.Duration
	// RevenueTimeout overrides DomainTimeout for the external billing
	// processor, which is the slowest upstream.
	RevenueTimeout time.Duration
}

// Client fetches raw snapshots per metric domain.
type Client struct {
	cfg        Config
	httpClient *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
	recorder   FetchRecorder
}

// NewClient constructs a Client. Logger and recorder may be nil.
func NewClient(cfg Config, logger *slog.Logger, recorder FetchRecorder) *Client {
	if cfg.DomainTimeout <= 0 {
		cfg.DomainTimeout = 3 * time.Second
	}
	if cfg.RevenueTimeout <= 0 {
		cfg.RevenueTimeout = cfg.DomainTimeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			// Per-domain deadlines come from the request contexts; this is a
			// hard ceiling for a single round trip.
			Timeout: 30 * time.Second,
		},
		validate: validator.New(),
		logger:   logger,
		recorder: recorder,
	}
}

func (c *Client) timeoutFor(domain Domain) time.Duration {
	if domain == DomainRevenue {
		return c.cfg.RevenueTimeout
	}
	return c.cfg.DomainTimeout
}

// TenantGrowth fetches the platform aggregate counters plus the tenant list
// and monthly tenant series. The aggregate counters are required; the list and
// series enrich the snapshot when present.
func (c *Client) TenantGrowth(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(DomainTenantGrowth))
	defer cancel()
	now := time.Now().UTC()

	var pm PlatformMetrics
	if err := c.getJSON(ctx, c.cfg.DataServiceURL, "/platform-metrics", &pm); err != nil {
		return c.miss(DomainTenantGrowth, err, now)
	}

	snap := Snapshot{Domain: DomainTenantGrowth, Available: true, FetchedAt: now, PlatformMetrics: &pm}

	var tenants []Tenant
	if err := c.getJSON(ctx, c.cfg.DataServiceURL, "/tenants", &tenants); err != nil {
		c.warn(DomainTenantGrowth, "tenant list unavailable", err)
	} else if err := validateEach(c.validate, tenants); err != nil {
		c.warn(DomainTenantGrowth, "tenant list failed validation", err)
	} else {
		snap.Tenants = tenants
	}

	var stats PlatformStats
	if err := c.getJSON(ctx, c.cfg.DataServiceURL, "/platform-stats?detailed=true", &stats); err != nil {
		c.warn(DomainTenantGrowth, "tenant series unavailable", err)
	} else {
		snap.Stats = &stats
	}

	c.hit(DomainTenantGrowth)
	return snap
}

// UserActivity fetches the detailed platform stats and keeps the user section.
func (c *Client) UserActivity(ctx context.Context) Snapshot {
	return c.statsDomain(ctx, DomainUserActivity)
}

// SystemHealth fetches the detailed platform stats and keeps the system
// section.
func (c *Client) SystemHealth(ctx context.Context) Snapshot {
	return c.statsDomain(ctx, DomainSystemHealth)
}

func (c *Client) statsDomain(ctx context.Context, domain Domain) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(domain))
	defer cancel()
	now := time.Now().UTC()

	var stats PlatformStats
	if err := c.getJSON(ctx, c.cfg.DataServiceURL, "/platform-stats?detailed=true", &stats); err != nil {
		return c.miss(domain, err, now)
	}
	if err := validateEach(c.validate, stats.System.Metrics); err != nil {
		return c.miss(domain, fmt.Errorf("invalid payload: %w", err), now)
	}
	c.hit(domain)
	return Snapshot{Domain: domain, Available: true, FetchedAt: now, Stats: &stats}
}

// Revenue fetches subscription revenue from the external billing processor. An
// unconfigured integration and success=false are both expected absence, not
// failures.
func (c *Client) Revenue(ctx context.Context) Snapshot {
	now := time.Now().UTC()
	if c.cfg.BillingServiceURL == "" {
		c.missCount(DomainRevenue)
		return unavailable(DomainRevenue, "billing processor not configured", now)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(DomainRevenue))
	defer cancel()

	var rev SubscriptionRevenue
	if err := c.getJSON(ctx, c.cfg.BillingServiceURL, "/subscription-revenue", &rev); err != nil {
		return c.miss(DomainRevenue, err, now)
	}
	if !rev.Success {
		reason := rev.Message
		if reason == "" {
			reason = "billing processor reported failure"
		}
		c.missCount(DomainRevenue)
		return unavailable(DomainRevenue, reason, now)
	}
	c.hit(DomainRevenue)
	return Snapshot{Domain: DomainRevenue, Available: true, FetchedAt: now, Revenue: &rev}
}

// SupplierStatus fetches the supplier registration list.
func (c *Client) SupplierStatus(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(DomainSupplierStatus))
	defer cancel()
	now := time.Now().UTC()

	var suppliers []SupplierRegistration
	if err := c.getJSON(ctx, c.cfg.DataServiceURL, "/supplier-registrations", &suppliers); err != nil {
		return c.miss(DomainSupplierStatus, err, now)
	}
	if err := validateEach(c.validate, suppliers); err != nil {
		return c.miss(DomainSupplierStatus, fmt.Errorf("invalid payload: %w", err), now)
	}
	c.hit(DomainSupplierStatus)
	return Snapshot{Domain: DomainSupplierStatus, Available: true, FetchedAt: now, Suppliers: suppliers}
}

func validateEach[T any](v *validator.Validate, items []T) error {
	for i := range items {
		if err := v.Struct(items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, base, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) miss(domain Domain, err error, at time.Time) Snapshot {
	c.warn(domain, "domain fetch failed", err)
	c.missCount(domain)
	return unavailable(domain, err.Error(), at)
}

func (c *Client) warn(domain Domain, msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, slog.String("domain", string(domain)), slog.Any("error", err))
}

func (c *Client) hit(domain Domain) {
	if c.recorder != nil {
		c.recorder.ObserveSourceFetch(string(domain), "ok")
	}
}

func (c *Client) missCount(domain Domain) {
	if c.recorder != nil {
		c.recorder.ObserveSourceFetch(string(domain), "unavailable")
	}
}

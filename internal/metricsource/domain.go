// Package metricsource fetches raw platform snapshots from the upstream data
// services. Each metric domain is fetched independently under its own timeout;
// expected absence (a processor not configured, a timeout, success=false) is
// reported as an unavailable snapshot, never as an error the caller must
// handle.
package metricsource

import "time"

// Domain identifies one independently fetched metric domain.
type Domain string

const (
	DomainTenantGrowth   Domain = "tenant_growth"
	DomainUserActivity   Domain = "user_activity"
	DomainRevenue        Domain = "revenue"
	DomainSystemHealth   Domain = "system_health"
	DomainSupplierStatus Domain = "supplier_status"
)

// Domains lists every metric domain.
func Domains() []Domain {
	return []Domain{
		DomainTenantGrowth,
		DomainUserActivity,
		DomainRevenue,
		DomainSystemHealth,
		DomainSupplierStatus,
	}
}

// PlatformMetrics mirrors GET /platform-metrics.
type PlatformMetrics struct {
	TotalTenants    int            `json:"totalTenants"`
	ActiveTenants   int            `json:"activeTenants"`
	TotalUsers      int            `json:"totalUsers"`
	TotalPatients   int            `json:"totalPatients"`
	MonthlyRevenue  float64        `json:"monthlyRevenue"`
	TotalRevenue    float64        `json:"totalRevenue"`
	TenantBreakdown map[string]int `json:"tenantBreakdown"`
}

// TenantStats carries per-tenant usage counters.
type TenantStats struct {
	UserCount    int `json:"userCount"`
	PatientCount int `json:"patientCount"`
}

// Tenant mirrors one entry of GET /tenants.
type Tenant struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Subdomain   string      `json:"subdomain"`
	IsActive    bool        `json:"isActive"`
	SuspendedAt *time.Time  `json:"suspendedAt,omitempty"`
	Stats       TenantStats `json:"stats"`
}

// SeriesPoint is the upstream time-series shape.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target,omitempty"`
}

// BucketCount is the upstream named-count shape.
type BucketCount struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MetricSample is the upstream performance-metric shape.
type MetricSample struct {
	Name     string  `json:"name" validate:"required"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Target   float64 `json:"target"`
	Unit     string  `json:"unit"`
}

// PlatformStats mirrors GET /platform-stats?detailed=true.
type PlatformStats struct {
	Tenants struct {
		Monthly []SeriesPoint `json:"monthly"`
		ByType  []BucketCount `json:"byType"`
	} `json:"tenants"`
	Users struct {
		ActiveMonthly []SeriesPoint `json:"activeMonthly"`
		ByRole        []BucketCount `json:"byRole"`
	} `json:"users"`
	System struct {
		Metrics []MetricSample `json:"metrics"`
	} `json:"system"`
	Business struct {
		RevenueMonthly []SeriesPoint `json:"revenueMonthly"`
	} `json:"business"`
}

// PlanRevenue is one subscription plan's revenue slice.
type PlanRevenue struct {
	Name  string  `json:"name"`
	MRR   float64 `json:"mrr"`
	Count int     `json:"count"`
}

// SubscriptionRevenue mirrors the external billing processor response.
// Success=false means the integration is not configured or declined the
// request; the payload is then unusable regardless of the other fields.
type SubscriptionRevenue struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message,omitempty"`
	MRR           float64       `json:"mrr"`
	TotalRevenue  float64       `json:"totalRevenue"`
	Subscriptions int           `json:"subscriptions"`
	Customers     int           `json:"customers"`
	Churn         float64       `json:"churn"`
	Plans         []PlanRevenue `json:"plans"`
}

// SupplierRegistration mirrors one entry of GET /supplier-registrations.
type SupplierRegistration struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name"`
	Status      string    `json:"status" validate:"oneof=pending_review approved rejected suspended"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Snapshot is the outcome of one domain fetch. Exactly the fields relevant to
// the domain are populated; Available=false leaves Reason describing why.
type Snapshot struct {
	Domain    Domain
	Available bool
	Reason    string
	FetchedAt time.Time

	PlatformMetrics *PlatformMetrics
	Tenants         []Tenant
	Stats           *PlatformStats
	Revenue         *SubscriptionRevenue
	Suppliers       []SupplierRegistration
}

func unavailable(domain Domain, reason string, at time.Time) Snapshot {
	return Snapshot{Domain: domain, Available: false, Reason: reason, FetchedAt: at}
}

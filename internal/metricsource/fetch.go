package metricsource

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchAll fans out one fetch per requested domain and joins on the results.
// Unknown domains are skipped. A cancelled parent context cancels every
// in-flight fetch; individual failures surface as unavailable snapshots, so
// the returned map always has one entry per requested known domain.
func (c *Client) FetchAll(ctx context.Context, domains []Domain) map[Domain]Snapshot {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	snapshots := make(map[Domain]Snapshot, len(domains))
	record := func(snap Snapshot) {
		mu.Lock()
		snapshots[snap.Domain] = snap
		mu.Unlock()
	}

	for _, domain := range domains {
		var fetch func(context.Context) Snapshot
		switch domain {
		case DomainTenantGrowth:
			fetch = c.TenantGrowth
		case DomainUserActivity:
			fetch = c.UserActivity
		case DomainRevenue:
			fetch = c.Revenue
		case DomainSystemHealth:
			fetch = c.SystemHealth
		case DomainSupplierStatus:
			fetch = c.SupplierStatus
		default:
			continue
		}
		g.Go(func() error {
			record(fetch(ctx))
			return nil
		})
	}

	// Fetches never return errors, so this only waits for the join point.
	_ = g.Wait()
	return snapshots
}

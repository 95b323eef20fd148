package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-health/meridian/internal/dashboard"
	jobmetrics "github.com/meridian-health/meridian/internal/jobs"
	"github.com/meridian-health/meridian/internal/rbac"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardWarmupJob pre-composes dashboard views for platform-scoped roles so
// the first request after a cache bump does not pay the fan-out cost.
type DashboardWarmupJob struct {
	Composer *dashboard.Composer
	Cache    *dashboard.ViewCache
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(composer *dashboard.Composer, cache *dashboard.ViewCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Composer: composer,
		Cache:    cache,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Composer == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	roles, err := j.resolveRoles(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting dashboard warmup", slog.Int("roles", len(roles)))

	start := j.now()
	warmed := 0
	for _, role := range roles {
		if err := j.warmRole(ctx, role); err != nil {
			resultErr = err
			logger.Error("warm role", slog.String("role", string(role)), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed dashboard warmup", slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DashboardWarmupJob) warmRole(ctx context.Context, role rbac.Role) error {
	// Bound each role so one slow upstream cannot starve the rest of the run.
	roleCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	principal := rbac.Principal{ID: uuid.New(), Role: role}
	view, err := j.Composer.Compose(roleCtx, principal)
	if err != nil {
		return err
	}
	if !view.Cacheable || j.Cache == nil {
		// A degraded view is composed fresh on demand, never warmed.
		return nil
	}
	key, err := j.Cache.Key(roleCtx, principal)
	if err != nil {
		return err
	}
	if err := j.Cache.Put(roleCtx, key, view); err != nil {
		return err
	}
	j.metrics().AddWarmedViews(string(role), 1)
	return nil
}

// resolveRoles maps payload role names to validated roles. Tenant-scoped
// roles are dropped: their cache keys embed the tenant id, so an entry warmed
// without one would never be read by a real request.
func (j *DashboardWarmupJob) resolveRoles(payload DashboardWarmupPayload) ([]rbac.Role, error) {
	if len(payload.Roles) == 0 {
		var roles []rbac.Role
		for _, role := range rbac.Roles() {
			if role.PlatformScoped() {
				roles = append(roles, role)
			}
		}
		return roles, nil
	}
	roles := make([]rbac.Role, 0, len(payload.Roles))
	for _, raw := range payload.Roles {
		role := rbac.Role(raw)
		if !role.Valid() {
			return nil, errors.New("dashboard warmup: unknown role " + raw)
		}
		if !role.PlatformScoped() {
			j.logger().Info("skip tenant-scoped role", slog.String("role", raw))
			continue
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

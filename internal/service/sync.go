package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispute-analytics/internal/alerting"
	"dispute-analytics/internal/analytics"
	"dispute-analytics/internal/storage"
)

// Run begins the scheduled sync loop.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, s.Sync)
}

// Sync analyzes every tenant over its full history and alerts on degraded
// account health. One tenant failing does not stop the others.
func (s *Service) Sync(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip sync because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	var errs []error
	for _, tenant := range s.Tenants() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := s.Analyze(ctx, Request{TenantID: tenant})
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenant, err))
			continue
		}
		if _, err := s.AlertHealth(ctx, tenant, result.Health); err != nil {
			s.logger.Error().Err(err).Str("tenant", tenant).Msg("health alert failed")
		}
	}
	return errors.Join(errs...)
}

// AlertHealth notifies when health is not Healthy and the tenant is outside its
// cooldown window. It reports whether a notification was sent.
func (s *Service) AlertHealth(ctx context.Context, tenant string, health analytics.Health) (bool, error) {
	if !s.alertsOn || s.deps.Notifier == nil || health.Tier == analytics.Healthy {
		return false, nil
	}

	now := s.now()
	if s.inCooldown(ctx, tenant, now) {
		s.logger.Debug().Str("tenant", tenant).Str("tier", string(health.Tier)).Msg("health alert suppressed by cooldown")
		return false, nil
	}

	if s.deps.AlertStore != nil {
		record := storage.HealthAlert{
			TenantID:  tenant,
			Ratio:     health.Ratio,
			Tier:      string(health.Tier),
			Channels:  s.channels,
			CreatedAt: now,
		}
		if _, err := s.deps.AlertStore.InsertHealthAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("tenant", tenant).Msg("failed to persist health alert")
		}
	}

	s.mu.Lock()
	s.lastAlert[tenant] = now
	s.mu.Unlock()

	note := alerting.Notification{
		TenantID:    tenant,
		GeneratedAt: now,
		Ratio:       health.Ratio,
		Tier:        string(health.Tier),
		Disputes:    health.Disputes,
		Orders:      health.Orders,
		Channels:    s.channels,
	}
	if err := s.deps.Notifier.Notify(ctx, note); err != nil {
		return false, fmt.Errorf("dispatch health alert: %w", err)
	}
	return true, nil
}

func (s *Service) inCooldown(ctx context.Context, tenant string, now time.Time) bool {
	if s.cooldown <= 0 {
		return false
	}

	s.mu.Lock()
	last, ok := s.lastAlert[tenant]
	s.mu.Unlock()
	if ok && now.Sub(last) < s.cooldown {
		return true
	}

	if s.deps.AlertStore == nil {
		return false
	}
	rec, err := s.deps.AlertStore.LastHealthAlert(ctx, tenant)
	if err != nil {
		s.logger.Warn().Err(err).Str("tenant", tenant).Msg("could not read last health alert")
		return false
	}
	return rec != nil && now.Sub(rec.CreatedAt) < s.cooldown
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.deps.Locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

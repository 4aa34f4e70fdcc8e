package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/cache"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AlarmService answers the escalation alarm poll.
type AlarmService struct {
	repos    repository.Repositories
	engine   *triage.Engine
	cache    cache.AlarmCache
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// AlarmDependencies bundles collaborators for the alarm service.
type AlarmDependencies struct {
	Repos    repository.Repositories
	Engine   *triage.Engine
	Cache    cache.AlarmCache
	CacheTTL time.Duration
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewAlarmService constructs the service. A nil cache or zero TTL disables caching.
func NewAlarmService(deps AlarmDependencies) *AlarmService {
	return &AlarmService{
		repos:    deps.Repos,
		engine:   deps.Engine,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		metrics:  deps.Metrics,
		logger:   loggerOrNop(deps.Logger),
	}
}

// HasAlarm reports whether any ticket in the viewer's working set is
// overdue. Anonymous viewers get false without touching storage.
func (s *AlarmService) HasAlarm(ctx context.Context, viewer *triage.Viewer) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	key := fmt.Sprintf("%s:%d", viewer.Role, viewer.ID)

	// The generation is read before the snapshot so that an invalidation
	// racing the computation leaves the result unreachable.
	var (
		generation int64
		writeBack  bool
	)
	if s.cachingEnabled() {
		lookup, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.metrics.RecordAlarmCache("error")
			s.logger.Warn("alarm cache read failed", zap.String("key", key), zap.Error(err))
		case lookup.Found:
			s.metrics.RecordAlarmCache("hit")
			return lookup.Raised, nil
		default:
			s.metrics.RecordAlarmCache("miss")
			generation, writeBack = lookup.Generation, true
		}
	}

	tickets, activity, err := loadSnapshot(ctx, s.repos, scopeFilter(viewer, true))
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	raised := s.engine.Alarm(viewer, tickets, activity)
	s.metrics.RecordAlarm(raised)

	if writeBack {
		if err := s.cache.Set(ctx, key, generation, raised, s.cacheTTL); err != nil {
			s.logger.Warn("alarm cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return raised, nil
}

// RegisterHandlers drops cached signals whenever a ticket changes.
func (s *AlarmService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || !s.cachingEnabled() {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketMessageAdded,
	} {
		dispatcher.Subscribe(eventType, s.invalidate)
	}
}

func (s *AlarmService) invalidate(ctx context.Context, event events.Event) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate alarm cache after %s: %w", event.Type, err)
	}
	return nil
}

func (s *AlarmService) cachingEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

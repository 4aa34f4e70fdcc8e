package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TriageService builds ticket boards.
type TriageService struct {
	repos   repository.Repositories
	engine  *triage.Engine
	metrics *observability.Metrics
	logger  *zap.Logger
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	Repos   repository.Repositories
	Engine  *triage.Engine
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewTriageService constructs the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	return &TriageService{
		repos:   deps.Repos,
		engine:  deps.Engine,
		metrics: deps.Metrics,
		logger:  loggerOrNop(deps.Logger),
	}
}

// Board returns the viewer's assigned, open and closed buckets.
func (s *TriageService) Board(ctx context.Context, viewer *triage.Viewer) (triage.Board, error) {
	if viewer == nil {
		return triage.Board{}, apperrors.NewUnauthorized("authentication required")
	}
	tickets, activity, err := loadSnapshot(ctx, s.repos, scopeFilter(viewer, false))
	if err != nil {
		return triage.Board{}, apperrors.NewInternalError(err)
	}
	board, err := s.engine.Classify(viewer, tickets, activity)
	if err != nil {
		return triage.Board{}, apperrors.NewForbidden(err.Error())
	}
	s.metrics.RecordBoard(string(viewer.Role))
	s.logger.Debug("board classified",
		zap.Int64("viewer_id", viewer.ID),
		zap.String("role", string(viewer.Role)),
		zap.Int("assigned", len(board.Assigned)),
		zap.Int("open", len(board.Open)),
		zap.Int("closed", len(board.Closed)))
	return board, nil
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

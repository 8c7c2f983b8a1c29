package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terra-clan/simulex-engine/internal/cache"
	"github.com/terra-clan/simulex-engine/internal/models"
	"github.com/terra-clan/simulex-engine/internal/storage"
	"github.com/terra-clan/simulex-engine/internal/telemetry"
)

// Dashboard is the assembled per-user view
type Dashboard struct {
	UserID          string               `json:"userId"`
	Stats           Stats                `json:"stats"`
	RolePerformance map[string]RoleScore `json:"rolePerformance"`
	RecentActivity  []*models.Result     `json:"recentActivity"`
	History         []*models.Result     `json:"history"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

// Service loads a user's results and builds their dashboard
type Service struct {
	repo   storage.Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a dashboard service. A nil cache disables caching.
func NewService(repo storage.Repository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		tracer: telemetry.Tracer("github.com/terra-clan/simulex-engine/internal/dashboard"),
	}
}

func cacheKey(userID string) string {
	return "dashboard:" + userID
}

// Get returns the dashboard of userID, from cache when fresh
func (s *Service) Get(ctx context.Context, userID string) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.Get", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var cached Dashboard
	found, err := s.cache.Get(ctx, cacheKey(userID), &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", "user_id", userID, "error", err)
	} else if found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	d, err := s.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey(userID), d, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", "user_id", userID, "error", err)
	}

	return d, nil
}

// Build computes the dashboard from the store, bypassing the cache
func (s *Service) Build(ctx context.Context, userID string) (*Dashboard, error) {
	results, err := s.repo.ListResults(ctx, models.ResultFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	simulations, err := s.repo.ListSimulations(ctx, models.SimulationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load simulations: %w", err)
	}

	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	simsByID := make(map[string]*models.Simulation, len(simulations))
	for _, sim := range simulations {
		simsByID[sim.ID] = sim
	}
	rolesByID := make(map[string]*models.Role, len(roles))
	for _, role := range roles {
		rolesByID[role.ID] = role
	}

	return &Dashboard{
		UserID:          userID,
		Stats:           CompletionStats(results),
		RolePerformance: RolePerformance(results, simsByID, rolesByID),
		RecentActivity:  RecentActivity(results, DefaultRecentLimit),
		History:         History(results),
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// Invalidate drops the cached dashboard of userID
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, cacheKey(userID)); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", "user_id", userID, "error", err)
	}
}

// InvalidateFor drops the cached dashboard of the result's owner. It serves as
// both the open and the finalize hook of the attempt tracker.
func (s *Service) InvalidateFor(ctx context.Context, result *models.Result) {
	s.Invalidate(ctx, result.UserID)
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/portfolio-api/internal/models"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
)

const dashboardStatsKey = "dashboard:stats"

type dashboardProjectRepository interface {
	Count(ctx context.Context) (int, error)
	CountFeatured(ctx context.Context) (int, error)
}

type dashboardContactRepository interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.ContactStatus) (int, error)
	Recent(ctx context.Context, limit int) ([]models.Contact, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// DashboardService aggregates admin landing-page stats and health checks.
type DashboardService struct {
	projects dashboardProjectRepository
	contacts dashboardContactRepository
	cache    statsCache
	db       pinger
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(projects dashboardProjectRepository, contacts dashboardContactRepository, cache statsCache, db pinger, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		projects: projects,
		contacts: contacts,
		cache:    cache,
		db:       db,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the dashboard counters, served from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	err := s.cache.Get(ctx, dashboardStatsKey, &cached)
	if err == nil {
		cached.CacheHit = true
		return &cached, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}

	stats, err := s.collectStats(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return stats, nil
}

// InvalidateStats drops the cached counters.
func (s *DashboardService) InvalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, dashboardStatsKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// SystemHealth probes the database and cache and reports per-service status.
func (s *DashboardService) SystemHealth(ctx context.Context) *models.SystemHealth {
	report := &models.SystemHealth{
		Status:    "healthy",
		Timestamp: s.now(),
		Services:  make(map[string]models.ServiceHealth, 2),
	}

	report.Services["database"] = s.probe(ctx, s.db.PingContext)
	report.Services["cache"] = s.probe(ctx, s.cache.Ping)

	for _, svc := range report.Services {
		if svc.Status != "healthy" {
			report.Status = "degraded"
			break
		}
	}
	return report
}

func (s *DashboardService) probe(ctx context.Context, ping func(context.Context) error) models.ServiceHealth {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(probeCtx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		return models.ServiceHealth{Status: "unhealthy", ResponseTimeMs: elapsed, Error: err.Error()}
	}
	return models.ServiceHealth{Status: "healthy", ResponseTimeMs: elapsed}
}

func (s *DashboardService) collectStats(ctx context.Context) (*models.DashboardStats, error) {
	totalProjects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count projects")
	}
	featured, err := s.projects.CountFeatured(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count featured projects")
	}
	totalContacts, err := s.contacts.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count contacts")
	}

	stats := &models.DashboardStats{
		TotalProjects:    totalProjects,
		FeaturedProjects: featured,
		TotalContacts:    totalContacts,
	}

	for status, dest := range map[models.ContactStatus]*int{
		models.ContactUnread:  &stats.UnreadContacts,
		models.ContactRead:    &stats.ReadContacts,
		models.ContactReplied: &stats.RepliedContacts,
	} {
		count, err := s.contacts.CountByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count contacts by status")
		}
		*dest = count
	}

	recent, err := s.contacts.Recent(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch recent contacts")
	}
	stats.RecentContacts = make([]models.RecentContact, 0, len(recent))
	for _, c := range recent {
		stats.RecentContacts = append(stats.RecentContacts, models.RecentContact{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Subject:   c.Subject,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
		})
	}

	return stats, nil
}

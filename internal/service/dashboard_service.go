package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhq/maintenance-api/internal/models"
	"github.com/hostelhq/maintenance-api/pkg/config"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardRequestStore interface {
	CountByStatus(ctx context.Context, hostelID string) (map[models.RequestStatus]int, error)
}

type dashboardCostStore interface {
	ListOverBudget(ctx context.Context, hostelID string) ([]models.CostRecord, error)
}

type dashboardScheduleStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error)
}

type bottleneckDetector interface {
	DetectBottlenecks(ctx context.Context, hostelID string) (*models.BottleneckReport, error)
}

// DashboardService assembles the hostel workload overview. Results are
// cached in Redis for the configured TTL; a cache failure falls back to a
// live rebuild.
type DashboardService struct {
	cache     dashboardCache
	requests  dashboardRequestStore
	costs     dashboardCostStore
	schedules dashboardScheduleStore
	detector  bottleneckDetector
	metrics   *MetricsService
	clock     Clock
	cfg       config.DashboardConfig
	logger    *zap.Logger
}

// NewDashboardService constructs the dashboard read model.
func NewDashboardService(
	cache dashboardCache,
	requests dashboardRequestStore,
	costs dashboardCostStore,
	schedules dashboardScheduleStore,
	detector bottleneckDetector,
	metrics *MetricsService,
	cfg config.DashboardConfig,
	clock Clock,
	logger *zap.Logger,
) *DashboardService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		cache:     cache,
		requests:  requests,
		costs:     costs,
		schedules: schedules,
		detector:  detector,
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Overview returns the hostel workload snapshot, cached per hostel.
func (s *DashboardService) Overview(ctx context.Context, hostelID string) (*models.DashboardOverview, error) {
	key := s.cacheKey(hostelID)
	if s.cfg.Enabled && s.cache != nil {
		start := time.Now()
		var cached models.DashboardOverview
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("dashboard cache read failed", "key", key, "error", err)
		}
	}

	overview, err := s.build(ctx, hostelID)
	if err != nil {
		return nil, err
	}
	if s.cfg.Enabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, overview, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("dashboard cache write failed", "key", key, "error", err)
		}
	}
	return overview, nil
}

// Invalidate drops cached overviews, all of them when hostelID is empty.
func (s *DashboardService) Invalidate(ctx context.Context, hostelID string) {
	if s.cache == nil {
		return
	}
	pattern := "dashboard:overview:*"
	if hostelID != "" {
		pattern = s.cacheKey(hostelID)
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Sugar().Warnw("dashboard cache invalidation failed", "pattern", pattern, "error", err)
	}
}

func (s *DashboardService) build(ctx context.Context, hostelID string) (*models.DashboardOverview, error) {
	now := s.clock.Now()

	counts, err := s.requests.CountByStatus(ctx, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}
	overBudget, err := s.costs.ListOverBudget(ctx, hostelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list over-budget records")
	}
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due schedules")
	}
	dueCount := 0
	for _, schedule := range due {
		if hostelID == "" || schedule.HostelID == hostelID {
			dueCount++
		}
	}

	report, err := s.detector.DetectBottlenecks(ctx, hostelID)
	if err != nil {
		return nil, err
	}

	return &models.DashboardOverview{
		HostelID:        hostelID,
		StatusCounts:    counts,
		OverBudgetCount: len(overBudget),
		DueSchedules:    dueCount,
		Bottlenecks:     report.Findings,
		GeneratedAt:     now,
	}, nil
}

func (s *DashboardService) cacheKey(hostelID string) string {
	if hostelID == "" {
		hostelID = "all"
	}
	return fmt.Sprintf("dashboard:overview:%s", hostelID)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type summaryRepository interface {
	Summary(ctx context.Context, filter models.ApplicationFilter) ([]models.BlockSummary, error)
}

// DashboardRequest scopes the dashboard to a block and an application date range.
type DashboardRequest struct {
	Block string
	From  string
	To    string
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo   summaryRepository
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// DashboardService composes the per-status and per-block counters shown to supervisors.
type DashboardService struct {
	repo   summaryRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:   params.Repo,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Summary returns the dashboard aggregate and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, req DashboardRequest) (*models.StatusSummary, bool, error) {
	filter, err := buildApplicationFilter(ListApplicationsRequest{Block: req.Block, From: req.From, To: req.To})
	if err != nil {
		return nil, false, err
	}

	cacheKey := dashboardCacheKey(filter)
	var cached models.StatusSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	blocks, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Storage(err, "failed to load dashboard summary")
	}
	summary := composeSummary(blocks, s.now().UTC())

	_ = s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	s.logger.Debug("dashboard summary computed", zap.String("key", cacheKey), zap.Int("blocks", len(blocks)))
	return summary, false, nil
}

func composeSummary(blocks []models.BlockSummary, generatedAt time.Time) *models.StatusSummary {
	summary := &models.StatusSummary{
		ByStatus:    make(map[models.ApplicationStatus]int, len(models.AllStatuses)),
		ByBlock:     make([]models.BlockSummary, 0, len(blocks)),
		GeneratedAt: generatedAt,
	}
	for _, status := range models.AllStatuses {
		summary.ByStatus[status] = 0
	}
	for _, b := range blocks {
		summary.Total += b.Total
		summary.ByStatus[models.StatusNotAssignedYet] += b.Pending
		summary.ByStatus[models.StatusInProcess] += b.InProcess
		summary.ByStatus[models.StatusCompliance] += b.Compliance
		summary.ByStatus[models.StatusDisposed] += b.Disposed
		summary.ByBlock = append(summary.ByBlock, b)
	}
	return summary
}

func dashboardCacheKey(filter models.ApplicationFilter) string {
	from, to := "", ""
	if filter.From != nil {
		from = filter.From.Time().Format("2006-01-02")
	}
	if filter.To != nil {
		to = filter.To.Time().Format("2006-01-02")
	}
	block := strings.ToLower(filter.Block)
	if block == "" {
		block = "all"
	}
	return fmt.Sprintf("dashboard:%s:%s:%s", block, from, to)
}

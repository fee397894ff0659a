package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

const (
	trackingCachePrefix   = "track:"
	dashboardCachePattern = "dashboard:*"
	// trackingRetain is how long a retired tracking version blocks older writes.
	trackingRetain = time.Hour
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetVersioned(ctx context.Context, key string, value interface{}, version int, ttl time.Duration) (bool, error)
	Retire(ctx context.Context, key string, version int, retain time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is the Redis read-through layer in front of the public tracking
// projection and the dashboard aggregate. Redis faults are logged and counted;
// callers treat them as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. A disabled service turns every call into a no-op.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the cached value into dest and reports whether it was found.
// A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. ttl <= 0 uses the service default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// SetTracking caches the tracking projection read at version. The write is
// skipped when a newer version of the application has already been committed.
func (s *CacheService) SetTracking(ctx context.Context, applicantID string, view interface{}, version int, ttl time.Duration) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	key := trackingCacheKey(applicantID)
	start := time.Now()
	written, err := s.repo.SetVersioned(ctx, key, view, version, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return written, err
}

// ForgetApplication drops the tracking projection of one application and every
// dashboard aggregate, which may all have counted its previous status. version
// is the committed version; projections of older versions are refused afterwards.
func (s *CacheService) ForgetApplication(ctx context.Context, applicantID string, version int) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Retire(ctx, trackingCacheKey(applicantID), version, trackingRetain); err != nil {
		s.logger.Warn("tracking cache eviction failed", zap.String("applicant_id", applicantID), zap.Error(err))
	}
	_ = s.Invalidate(ctx, dashboardCachePattern)
}

// Invalidate removes every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

func trackingCacheKey(applicantID string) string {
	return trackingCachePrefix + applicantID
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

// Cache resources. Entries are keyed {resource}:{id} for details and {resource}:LIST:{hash} for listings.
const (
	ResourceUsers       = "users"
	ResourceRoles       = "roles"
	ResourcePermissions = "permissions"
	ResourceProperties  = "properties"
	ResourceLocations   = "locations"
	ResourceRBAC        = "rbac"

	listTag = "LIST"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteKeys(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Generation(ctx context.Context, key string) (int64, error)
	BumpGeneration(ctx context.Context, key string) error
	SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value interface{}, ttl time.Duration) (bool, error)
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
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

// DetailKey is the cache key of a single resource.
func DetailKey(resource, id string) string {
	return resource + ":" + id
}

// generationKey holds the invalidation counter of resource. It lives outside the
// {resource}:* namespace so InvalidateResource never resets it.
func generationKey(resource string) string {
	return "cachegen:" + resource
}

func resourceOf(key string) string {
	resource, _, _ := strings.Cut(key, ":")
	return resource
}

// ListKey is the cache key of one listing query; params are hashed so any filter shape is accepted.
func ListKey(resource string, params interface{}) string {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(raw)
	return resource + ":" + listTag + ":" + hex.EncodeToString(sum[:12])
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
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
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidateTags drops the detail entries of ids and every listing of resource.
// Entries of other resources and other ids are left alone.
func (s *CacheService) InvalidateTags(ctx context.Context, resource string, ids ...string) error {
	if !s.Enabled() {
		return nil
	}
	s.bump(ctx, resource)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, DetailKey(resource, id))
		}
	}
	if err := s.repo.DeleteKeys(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("resource", resource), zap.Strings("ids", ids), zap.Error(err))
		return err
	}
	return s.Invalidate(ctx, resource+":"+listTag+":*")
}

// InvalidateResource drops every cached entry of resource.
func (s *CacheService) InvalidateResource(ctx context.Context, resource string) error {
	if !s.Enabled() {
		return nil
	}
	s.bump(ctx, resource)
	return s.Invalidate(ctx, resource+":*")
}

// bump moves the generation of resource so loads that started earlier do not store their results.
func (s *CacheService) bump(ctx context.Context, resource string) {
	if err := s.repo.BumpGeneration(ctx, generationKey(resource)); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("resource", resource), zap.Error(err))
	}
}

// Generation returns the current generation of the resource key belongs to.
// ok is false when the cache is disabled or unreachable.
func (s *CacheService) Generation(ctx context.Context, key string) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	gen, err := s.repo.Generation(ctx, generationKey(resourceOf(key)))
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// SetIfCurrent stores value only if the resource of key has not been invalidated since gen was read.
func (s *CacheService) SetIfCurrent(ctx context.Context, key string, gen int64, value interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	stored, err := s.repo.SetIfGeneration(ctx, generationKey(resourceOf(key)), gen, key, value, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if !stored {
		s.logger.Debug("cache write dropped after invalidation", zap.String("key", key))
	}
	return stored, nil
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// cached serves key from cache or runs load and stores its result, unless the resource was
// invalidated while load ran. Cache errors never fail the call.
func cached[T any](ctx context.Context, cache *CacheService, key string, load func() (T, error)) (T, bool, error) {
	var out T
	var gen int64
	storable := false
	if cache.Enabled() {
		if hit, err := cache.Get(ctx, key, &out); err == nil && hit {
			return out, true, nil
		}
		gen, storable = cache.Generation(ctx, key)
	}
	out, err := load()
	if err != nil {
		return out, false, err
	}
	if storable {
		_, _ = cache.SetIfCurrent(ctx, key, gen, out)
	}
	return out, false, nil
}

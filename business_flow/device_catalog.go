package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/amirphl/parts-pricing/config"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/redis/go-redis/v9"
)

const deviceCatalogCacheKey = "device_catalog:v1"

// DeviceCatalog serves the device matcher built from the current catalog.
type DeviceCatalog interface {
	Matcher(ctx context.Context) (*DeviceMatcher, error)
	// Invalidate drops the cached snapshot; call it after any catalog write.
	Invalidate(ctx context.Context)
}

// DeviceCatalogImpl reads the catalog through redis when caching is enabled.
type DeviceCatalogImpl struct {
	repo        repository.DeviceModelRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
}

func NewDeviceCatalog(repo repository.DeviceModelRepository, rc *redis.Client, cacheConfig *config.CacheConfig) DeviceCatalog {
	return &DeviceCatalogImpl{
		repo:        repo,
		rc:          rc,
		cacheConfig: cacheConfig,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func (c *DeviceCatalogImpl) cacheEnabled() bool {
	return c.rc != nil && c.cacheConfig != nil && c.cacheConfig.Enabled
}

func (c *DeviceCatalogImpl) Matcher(ctx context.Context) (*DeviceMatcher, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeviceMatcher(entries), nil
}

func (c *DeviceCatalogImpl) load(ctx context.Context) ([]*models.DeviceModel, error) {
	if c.cacheEnabled() {
		key := redisKey(*c.cacheConfig, deviceCatalogCacheKey)
		if bs, err := c.rc.Get(ctx, key).Bytes(); err == nil && len(bs) > 0 {
			var entries []*models.DeviceModel
			if err := json.Unmarshal(bs, &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := c.repo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	if c.cacheEnabled() {
		key := redisKey(*c.cacheConfig, deviceCatalogCacheKey)
		if bs, err := json.Marshal(entries); err == nil {
			if err := c.rc.Set(ctx, key, bs, c.cacheConfig.DefaultTTL).Err(); err != nil {
				log.Printf("device catalog: cache write failed: %v", err)
			}
		}
	}
	return entries, nil
}

func (c *DeviceCatalogImpl) Invalidate(ctx context.Context) {
	if !c.cacheEnabled() {
		return
	}
	if err := c.rc.Del(ctx, redisKey(*c.cacheConfig, deviceCatalogCacheKey)).Err(); err != nil {
		log.Printf("device catalog: cache invalidation failed: %v", err)
	}
}

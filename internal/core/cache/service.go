package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/pkg/common"
)

// keyPrefix Redis 鍵前綴
const keyPrefix = "dining:menu:"

// Service Redis 快取服務
type Service struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewService 創建 Redis 快取服務並測試連線
func NewService(ctx context.Context, cfg config.CacheConfig, rcfg config.RedisConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", rcfg.Addr), zap.Duration("存活時間", cfg.TTL))
	return &Service{client: client, ttl: cfg.TTL}, nil
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			common.LogCacheMiss("redis", key)
			return nil, common.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	s.hits.Add(1)
	common.LogCacheHit("redis", key)
	return data, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 移除緩存
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線，供 readiness 檢查使用
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stats 快取統計
func (s *Service) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": config.CacheBackendRedis,
		"hits":    s.hits.Load(),
		"misses":  s.misses.Load(),
	}
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}

// New 依設定選擇快取後端；停用時回傳 nil
func New(ctx context.Context, cfg config.CacheConfig, rcfg config.RedisConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	if cfg.Backend == config.CacheBackendRedis {
		svc, err := NewService(ctx, cfg, rcfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	return NewManager(cfg), nil
}

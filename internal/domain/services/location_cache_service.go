package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// InterfaceLocationCacheService 定义临时位置缓存接口
// 活动会话的"当前位置"以缓存为准，数据库里的位置只是滞后副本；
// 条目在首次位置上报时创建，在会话解除或进程重启时销毁
type InterfaceLocationCacheService interface {
	Set(emergencyID string, entry models.LocationCacheEntry) error
	Get(emergencyID string) (*models.LocationCacheEntry, bool, error)
	Evict(emergencyID string) error
}

// 缓存键前缀与索引集合
const (
	locationKeyPrefix = "emergency_location:"
	locationIndexKey  = "emergency_location_ids"

	// 条目兜底过期时间，防止异常退出的会话永久占用缓存
	locationEntryTTL = 24 * time.Hour
)

// RedisLocationCacheService 基于Redis的位置缓存实现
type RedisLocationCacheService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisLocationCacheService 创建一个新的Redis位置缓存服务
func NewRedisLocationCacheService(cfg *config.Config) *RedisLocationCacheService {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.GetRedisAddr(),
		DB:   cfg.RedisDB,
	})

	return &RedisLocationCacheService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// Set 写入或覆盖一个会话的位置条目
func (s *RedisLocationCacheService) Set(emergencyID string, entry models.LocationCacheEntry) error {
	jsonValue, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.Client.TxPipeline()
	pipe.Set(s.Ctx, locationKeyPrefix+emergencyID, jsonValue, locationEntryTTL)
	pipe.SAdd(s.Ctx, locationIndexKey, emergencyID)
	_, err = pipe.Exec(s.Ctx)
	return err
}

// Get 读取一个会话的位置条目
func (s *RedisLocationCacheService) Get(emergencyID string) (*models.LocationCacheEntry, bool, error) {
	val, err := s.Client.Get(s.Ctx, locationKeyPrefix+emergencyID).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry models.LocationCacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// Evict 删除一个会话的位置条目
func (s *RedisLocationCacheService) Evict(emergencyID string) error {
	pipe := s.Client.TxPipeline()
	pipe.Del(s.Ctx, locationKeyPrefix+emergencyID)
	pipe.SRem(s.Ctx, locationIndexKey, emergencyID)
	_, err := pipe.Exec(s.Ctx)
	return err
}

// Ping 测试Redis连接
func (s *RedisLocationCacheService) Ping() error {
	ctx, cancel := context.WithTimeout(s.Ctx, 5*time.Second)
	defer cancel()
	return s.Client.Ping(ctx).Err()
}

// MemoryLocationCacheService 进程内存版本的位置缓存实现
// Redis不可用时作为降级方案，也用于测试
type MemoryLocationCacheService struct {
	mu      sync.RWMutex
	entries map[string]models.LocationCacheEntry
}

// NewMemoryLocationCacheService 创建一个新的内存位置缓存服务
func NewMemoryLocationCacheService() *MemoryLocationCacheService {
	return &MemoryLocationCacheService{
		entries: make(map[string]models.LocationCacheEntry),
	}
}

// Set 写入或覆盖一个会话的位置条目
func (s *MemoryLocationCacheService) Set(emergencyID string, entry models.LocationCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[emergencyID] = entry
	return nil
}

// Get 读取一个会话的位置条目
func (s *MemoryLocationCacheService) Get(emergencyID string) (*models.LocationCacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[emergencyID]
	if !exists {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Evict 删除一个会话的位置条目
func (s *MemoryLocationCacheService) Evict(emergencyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, emergencyID)
	return nil
}

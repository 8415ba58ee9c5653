package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建一个内存数据库并迁移所有模型
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.EmergencyContact{},
		&models.EmergencySession{},
		&models.Recording{},
	)
	require.NoError(t, err)

	return db
}

// testConfig 返回测试用配置，MQTT留空使推送运行在仅进程内模式
func testConfig() *config.Config {
	return &config.Config{
		TrackingBaseURL: "http://localhost:3000/track",
		JWTSecretKey:    "test-secret",
	}
}

// fakeSMSGateway 记录所有发送的假网关，可按号码注入失败
type fakeSMSGateway struct {
	mu       sync.Mutex
	sent     []fakeSMS
	failFor  map[string]bool
	notified chan string
}

type fakeSMS struct {
	To   string
	Body string
}

func newFakeSMSGateway() *fakeSMSGateway {
	return &fakeSMSGateway{
		failFor:  make(map[string]bool),
		notified: make(chan string, 64),
	}
}

func (g *fakeSMSGateway) SendMessage(_ context.Context, to, body string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() { g.notified <- to }()
	if g.failFor[to] {
		return "", fmt.Errorf("gateway rejected %s", to)
	}
	g.sent = append(g.sent, fakeSMS{To: to, Body: body})
	return fmt.Sprintf("msg-%d", len(g.sent)), nil
}

// waitForSends 等待n次发送尝试完成（成功或失败都算一次）
func (g *fakeSMSGateway) waitForSends(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-g.notified:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for send attempt %d of %d", i+1, n)
		}
	}
}

func (g *fakeSMSGateway) sentMessages() []fakeSMS {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]fakeSMS, len(g.sent))
	copy(out, g.sent)
	return out
}

// newTestEmergencyService 组装一套基于内存实现的紧急会话服务
func newTestEmergencyService(t *testing.T, db *gorm.DB) (*EmergencyService, *MemoryLocationCacheService, *SessionFeedService, *fakeSMSGateway) {
	t.Helper()

	cfg := testConfig()
	cache := NewMemoryLocationCacheService()
	feed := NewSessionFeedService(cfg)
	gateway := newFakeSMSGateway()
	notification := NewNotificationService(gateway)

	service := NewEmergencyService(db, cache, feed, notification, cfg)
	t.Cleanup(service.Stop)

	return service, cache, feed, gateway
}

// createTestUser 创建一个带两个紧急联系人的用户
func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     "Asha",
		Email:    email,
		Phone:    "+919800000000",
		Password: "secret123",
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Priya", Phone: "+919800000001"},
			{Name: "Ravi", Phone: "+919800000002"},
		},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

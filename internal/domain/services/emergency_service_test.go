package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSOSNotifiesRegisteredContacts(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, gateway := newTestEmergencyService(t, db)

	user := createTestUser(t, db, "asha@example.com")

	loc := &models.Location{Latitude: 12.97, Longitude: 77.59}
	session, err := service.TriggerSOS(&user.ID, loc, "")
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusActive, session.Status)
	assert.Equal(t, user.ID, *session.UserID)

	gateway.waitForSends(t, 2)
	sent := gateway.sentMessages()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.Contains(t, msg.Body, "Asha")
		assert.Contains(t, msg.Body, "http://localhost:3000/track/"+session.ID)
	}
}

func TestTriggerSOSSucceedsWhenAllNotificationsFail(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, gateway := newTestEmergencyService(t, db)

	user := createTestUser(t, db, "asha@example.com")
	gateway.failFor["+919800000001"] = true
	gateway.failFor["+919800000002"] = true

	// 所有联系人的通知都失败，会话创建仍然成功
	session, err := service.TriggerSOS(&user.ID, &models.Location{Latitude: 1, Longitude: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusActive, session.Status)

	gateway.waitForSends(t, 2)
	assert.Empty(t, gateway.sentMessages())

	var stored models.EmergencySession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, models.EmergencyStatusActive, stored.Status)
}

func TestTriggerSOSAnonymousWhenOwnerUnknown(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, gateway := newTestEmergencyService(t, db)

	unknownID := uint(4242)
	session, err := service.TriggerSOS(&unknownID, nil, "")
	require.NoError(t, err)
	assert.Nil(t, session.UserID)
	assert.Equal(t, "Anonymous emergency alert", session.Notes)

	// 没有归属人就没有联系人可通知
	assert.Empty(t, gateway.sentMessages())

	// 完全不提供归属人同样按匿名处理
	session, err = service.TriggerSOS(nil, nil, "help")
	require.NoError(t, err)
	assert.Nil(t, session.UserID)
	assert.Equal(t, "help", session.Notes)
}

func TestTriggerSOSSeedsLocationCache(t *testing.T) {
	db := setupTestDB(t)
	service, cache, _, _ := newTestEmergencyService(t, db)

	loc := &models.Location{Latitude: 1.5, Longitude: 2.5}
	session, err := service.TriggerSOS(nil, loc, "")
	require.NoError(t, err)

	entry, hit, err := cache.Get(session.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1.5, entry.Location.Latitude)
}

func TestUpdateLocationLastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	service, cache, _, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)

	// 后到的更新覆盖先到的，即使其观测时间更早
	older := time.Now().Add(-time.Minute)
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 1, Longitude: 1}, time.Now()))
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 2, Longitude: 2}, older))

	entry, hit, err := cache.Get(session.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2.0, entry.Location.Latitude)
}

func TestUpdateLocationPublishesFeedEvent(t *testing.T) {
	db := setupTestDB(t)
	service, _, feed, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)

	sub := feed.Subscribe(session.ID)
	defer feed.Unsubscribe(sub)

	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 3, Longitude: 4}, time.Now()))

	select {
	case event := <-sub.Events():
		assert.Equal(t, FeedEventLocationUpdated, event.Type)
		require.NotNil(t, event.Location)
		assert.Equal(t, 3.0, event.Location.Latitude)
		assert.Equal(t, 4.0, event.Location.Longitude)
	case <-time.After(time.Second):
		t.Fatal("no location event received")
	}
}

func TestUpdateLocationUnknownSession(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, _ := newTestEmergencyService(t, db)

	err := service.UpdateLocation(uuid.New().String(), models.Location{Latitude: 1, Longitude: 1}, time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateLocationAfterCancelReturnsNotFound(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 1, Longitude: 1}, time.Now()))

	_, err = service.CancelEmergency(session.ID)
	require.NoError(t, err)

	err = service.UpdateLocation(session.ID, models.Location{Latitude: 2, Longitude: 2}, time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// gatedLocationCache 在第一次Set写入前阻塞，直到gate被关闭
// 用于把一次位置上报停在存活检查和缓存写入之间
type gatedLocationCache struct {
	*MemoryLocationCacheService
	gate chan struct{}
	once sync.Once
}

func (c *gatedLocationCache) Set(emergencyID string, entry models.LocationCacheEntry) error {
	c.once.Do(func() { <-c.gate })
	return c.MemoryLocationCacheService.Set(emergencyID, entry)
}

func TestConcurrentCancelDoesNotResurrectSession(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cache := &gatedLocationCache{
		MemoryLocationCacheService: NewMemoryLocationCacheService(),
		gate:                       make(chan struct{}),
	}
	feed := NewSessionFeedService(cfg)
	gateway := newFakeSMSGateway()
	service := NewEmergencyService(db, cache, feed, NewNotificationService(gateway), cfg)
	t.Cleanup(service.Stop)

	// 不带初始位置，触发时不写缓存
	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)

	// 一次位置上报和一次解除并发执行，上报在缓存写入前被卡住
	updateDone := make(chan error, 1)
	go func() {
		updateDone <- service.UpdateLocation(session.ID, models.Location{Latitude: 1, Longitude: 1}, time.Now())
	}()
	cancelDone := make(chan error, 1)
	go func() {
		_, cancelErr := service.CancelEmergency(session.ID)
		cancelDone <- cancelErr
	}()

	time.Sleep(50 * time.Millisecond)
	close(cache.gate)

	require.NoError(t, <-cancelDone)
	// 竞争中的上报要么在解除前完成，要么被拒绝，但不允许其他结果
	if err := <-updateDone; err != nil {
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	// 解除完成后会话保持终态：缓存无条目，后续上报一律拒绝
	_, hit, err := cache.Get(session.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	err = service.UpdateLocation(session.ID, models.Location{Latitude: 2, Longitude: 2}, time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var stored models.EmergencySession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, models.EmergencyStatusResolved, stored.Status)
}

func TestCancelEmergencyIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)

	first, err := service.CancelEmergency(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusResolved, first.Status)
	require.NotNil(t, first.ResolvedAt)

	// 重复解除返回当前状态，解除时间不变
	second, err := service.CancelEmergency(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusResolved, second.Status)
	require.NotNil(t, second.ResolvedAt)
	assert.WithinDuration(t, *first.ResolvedAt, *second.ResolvedAt, time.Millisecond)

	_, err = service.CancelEmergency(uuid.New().String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCancelEmergencyFlushesLocationAndEvictsCache(t *testing.T) {
	db := setupTestDB(t)
	service, cache, feed, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 7, Longitude: 8}, time.Now()))

	sub := feed.Subscribe(session.ID)
	defer feed.Unsubscribe(sub)

	resolved, err := service.CancelEmergency(session.ID)
	require.NoError(t, err)

	// 缓存中的最新位置作为最后已知位置落库
	require.NotNil(t, resolved.LastKnownLocation)
	assert.Equal(t, 7.0, resolved.LastKnownLocation.Latitude)

	// 缓存条目已销毁
	_, hit, err := cache.Get(session.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	// 订阅者收到解除事件
	select {
	case event := <-sub.Events():
		assert.Equal(t, FeedEventCancelled, event.Type)
	case <-time.After(time.Second):
		t.Fatal("no cancellation event received")
	}
}

func TestGetCurrentLocationPrefersCache(t *testing.T) {
	db := setupTestDB(t)
	service, cache, _, _ := newTestEmergencyService(t, db)

	user := createTestUser(t, db, "asha@example.com")
	session, err := service.TriggerSOS(&user.ID, &models.Location{Latitude: 1, Longitude: 1}, "")
	require.NoError(t, err)
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 5, Longitude: 6}, time.Now()))

	snapshot, err := service.GetCurrentLocation(session.ID)
	require.NoError(t, err)
	assert.True(t, snapshot.FromCache)
	require.NotNil(t, snapshot.Location)
	assert.Equal(t, 5.0, snapshot.Location.Latitude)
	require.NotNil(t, snapshot.Owner)
	assert.Equal(t, "Asha", snapshot.Owner.Name)

	// 缓存被清掉后退回数据库中的滞后副本
	require.NoError(t, cache.Evict(session.ID))
	snapshot, err = service.GetCurrentLocation(session.ID)
	require.NoError(t, err)
	assert.False(t, snapshot.FromCache)
	require.NotNil(t, snapshot.Location)
	assert.Equal(t, 1.0, snapshot.Location.Latitude)

	_, err = service.GetCurrentLocation(uuid.New().String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAttachRecordingAfterResolveStillAllowed(t *testing.T) {
	db := setupTestDB(t)
	service, _, feed, _ := newTestEmergencyService(t, db)

	user := createTestUser(t, db, "asha@example.com")
	session, err := service.TriggerSOS(&user.ID, nil, "")
	require.NoError(t, err)
	_, err = service.CancelEmergency(session.ID)
	require.NoError(t, err)

	recording := &models.Recording{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Filename: "late.webm",
		Size:     3,
		Data:     []byte{1, 2, 3},
	}
	require.NoError(t, db.Create(recording).Error)

	sub := feed.Subscribe(session.ID)
	defer feed.Unsubscribe(sub)

	// 上传在解除之后完成的录音仍然允许关联
	require.NoError(t, service.AttachRecording(session.ID, recording))

	var stored models.Recording
	require.NoError(t, db.First(&stored, "id = ?", recording.ID).Error)
	require.NotNil(t, stored.EmergencyID)
	assert.Equal(t, session.ID, *stored.EmergencyID)
	assert.True(t, stored.IsEmergencyRecording)

	select {
	case event := <-sub.Events():
		assert.Equal(t, FeedEventNewRecording, event.Type)
		assert.Equal(t, recording.ID, event.RecordingID)
	case <-time.After(time.Second):
		t.Fatal("no recording event received")
	}

	assert.ErrorIs(t, service.AttachRecording(uuid.New().String(), recording), ErrSessionNotFound)
}

func TestStopFlushesDirtyLocationsToStore(t *testing.T) {
	db := setupTestDB(t)
	service, _, _, _ := newTestEmergencyService(t, db)

	session, err := service.TriggerSOS(nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, service.UpdateLocation(session.ID, models.Location{Latitude: 9, Longitude: 10}, time.Now()))

	// Stop会把尚未回写的位置落库
	service.Stop()

	var stored models.EmergencySession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	require.NotNil(t, stored.LastKnownLocation)
	assert.Equal(t, 9.0, stored.LastKnownLocation.Latitude)
	assert.Equal(t, 10.0, stored.LastKnownLocation.Longitude)
}

func TestEmergencyLifecycleEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	service, _, feed, gateway := newTestEmergencyService(t, db)

	user := createTestUser(t, db, "asha@example.com")

	// 触发SOS，两个联系人各收到一条带跟踪链接的短信
	session, err := service.TriggerSOS(&user.ID, &models.Location{Latitude: 1, Longitude: 1}, "walking home")
	require.NoError(t, err)
	gateway.waitForSends(t, 2)

	// 两个跟踪端通过链接订阅
	subA := feed.Subscribe(session.ID)
	subB := feed.Subscribe(session.ID)
	defer feed.Unsubscribe(subA)
	defer feed.Unsubscribe(subB)

	// 求助者持续移动
	for i := 1; i <= 3; i++ {
		require.NoError(t, service.UpdateLocation(session.ID, models.Location{
			Latitude:  float64(i),
			Longitude: float64(i),
		}, time.Now()))
	}

	for _, sub := range []*FeedSubscription{subA, subB} {
		for i := 1; i <= 3; i++ {
			select {
			case event := <-sub.Events():
				assert.Equal(t, FeedEventLocationUpdated, event.Type)
				assert.Equal(t, float64(i), event.Location.Latitude)
			case <-time.After(time.Second):
				t.Fatalf("tracker missed location update %d", i)
			}
		}
	}

	// 求助者解除警报，跟踪端收到解除事件，联系人收到解除通知
	_, err = service.CancelEmergency(session.ID)
	require.NoError(t, err)
	gateway.waitForSends(t, 2)

	for _, sub := range []*FeedSubscription{subA, subB} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, FeedEventCancelled, event.Type)
		case <-time.After(time.Second):
			t.Fatal("tracker missed cancellation")
		}
	}

	sent := gateway.sentMessages()
	require.Len(t, sent, 4)
	cancelBody := sent[len(sent)-1].Body
	assert.True(t, strings.Contains(cancelBody, "cancelled") || strings.Contains(cancelBody, "safe"))
}

package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 缓存中的位置定期回写数据库的间隔
const locationFlushInterval = 30 * time.Second

// 匿名求助时写入会话的默认备注
const anonymousNotes = "Anonymous emergency alert"

// InterfaceEmergencyService 定义紧急会话服务接口
type InterfaceEmergencyService interface {
	TriggerSOS(userID *uint, location *models.Location, notes string) (*models.EmergencySession, error)
	UpdateLocation(emergencyID string, location models.Location, observedAt time.Time) error
	CancelEmergency(emergencyID string) (*models.EmergencySession, error)
	GetSession(emergencyID string) (*models.EmergencySession, error)
	GetCurrentLocation(emergencyID string) (*LocationSnapshot, error)
	AttachRecording(emergencyID string, recording *models.Recording) error
	Stop()
}

// OwnerSummary 会话归属人的摘要信息，提供给跟踪端展示
type OwnerSummary struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// LocationSnapshot 某个会话当前位置的快照
// 优先来自临时缓存，缓存未命中时退回数据库中的滞后副本
type LocationSnapshot struct {
	EmergencyID string                 `json:"emergency_id"`
	Status      models.EmergencyStatus `json:"status"`
	Location    *models.Location       `json:"location,omitempty"`
	ObservedAt  *time.Time             `json:"observed_at,omitempty"`
	ReceivedAt  *time.Time             `json:"received_at,omitempty"`
	FromCache   bool                   `json:"from_cache"`
	Owner       *OwnerSummary          `json:"owner,omitempty"`
}

// EmergencyService 紧急会话服务的实现，是SOS流程的编排者
// 数据库是会话的持久记录，位置的实时值以临时缓存为准，
// 缓存中的位置由后台任务按固定间隔回写数据库
type EmergencyService struct {
	DB           *gorm.DB
	Cache        InterfaceLocationCacheService
	Feed         InterfaceSessionFeedService
	Notification InterfaceNotificationService
	Config       *config.Config

	// 位置有更新但尚未回写数据库的会话ID集合
	dirtySessions sync.Map

	// 以会话ID为键的互斥锁，串行化位置写入和解除迁移，
	// 防止并发的位置上报在解除落库之后重建缓存条目
	sessionLocks sync.Map

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewEmergencyService 创建一个新的紧急会话服务并启动位置回写任务
func NewEmergencyService(db *gorm.DB, cache InterfaceLocationCacheService, feed InterfaceSessionFeedService, notification InterfaceNotificationService, cfg *config.Config) *EmergencyService {
	service := &EmergencyService{
		DB:           db,
		Cache:        cache,
		Feed:         feed,
		Notification: notification,
		Config:       cfg,
		stopChan:     make(chan struct{}),
	}

	go service.runLocationFlusher()

	return service
}

// Stop 停止后台回写任务
func (s *EmergencyService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// lockSession 锁定某个会话，返回已持有的锁
func (s *EmergencyService) lockSession(emergencyID string) *sync.Mutex {
	value, _ := s.sessionLocks.LoadOrStore(emergencyID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu
}

// TriggerSOS 触发一次SOS，创建新的紧急会话
// 归属人不存在或未提供时按匿名会话处理；联系人通知是尽力而为的，
// 通知失败绝不导致会话创建失败
func (s *EmergencyService) TriggerSOS(userID *uint, location *models.Location, notes string) (*models.EmergencySession, error) {
	session := &models.EmergencySession{
		ID:     uuid.New().String(),
		Status: models.EmergencyStatusActive,
		Notes:  notes,
	}

	// 解析归属人，找不到时降级为匿名会话而不是报错
	var owner *models.User
	if userID != nil {
		var user models.User
		err := s.DB.Preload("EmergencyContacts").First(&user, *userID).Error
		if err == nil {
			owner = &user
			session.UserID = userID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if owner == nil && session.Notes == "" {
		session.Notes = anonymousNotes
	}

	now := time.Now()
	if location != nil {
		session.LastKnownLocation = location
		session.LocationUpdatedAt = &now
	}

	if err := s.DB.Create(session).Error; err != nil {
		return nil, err
	}

	// 用初始位置预热缓存，失败只记日志，不影响会话创建
	if location != nil {
		entry := models.LocationCacheEntry{
			Location:   *location,
			ObservedAt: now,
			ReceivedAt: now,
		}
		if err := s.Cache.Set(session.ID, entry); err != nil {
			log.Printf("[EMERGENCY] 预热位置缓存失败: emergency=%s, err=%v", session.ID, err)
		}
	}

	log.Printf("[EMERGENCY] 会话已创建: id=%s, anonymous=%v", session.ID, owner == nil)

	// 异步通知联系人，发送结果只记日志
	if owner != nil && len(owner.EmergencyContacts) > 0 {
		trackingLink := fmt.Sprintf("%s/%s", s.Config.TrackingBaseURL, session.ID)
		body := fmt.Sprintf("EMERGENCY: %s has triggered an SOS alert. Track their live location: %s", owner.Name, trackingLink)
		s.Notification.NotifyContacts(owner.EmergencyContacts, body)
	}

	return session, nil
}

// UpdateLocation 上报某个会话的最新位置
// 按到达顺序覆盖，不依据observedAt排序；会话不存在或已解除时返回ErrSessionNotFound
func (s *EmergencyService) UpdateLocation(emergencyID string, location models.Location, observedAt time.Time) error {
	// 与解除操作互斥：存活检查和缓存写入之间不允许插入解除迁移，
	// 否则已解除会话的缓存条目会被重建，后续上报将静默成功
	mu := s.lockSession(emergencyID)
	defer mu.Unlock()

	// 缓存命中即视为会话活动中，避免每次上报都查数据库
	_, hit, err := s.Cache.Get(emergencyID)
	if err != nil {
		return err
	}
	if !hit {
		var session models.EmergencySession
		err := s.DB.First(&session, "id = ?", emergencyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if !session.IsActive() {
			return ErrSessionNotFound
		}
	}

	now := time.Now()
	entry := models.LocationCacheEntry{
		Location:    location,
		ObservedAt:  observedAt,
		ReceivedAt:  now,
		BroadcastAt: now,
	}
	if err := s.Cache.Set(emergencyID, entry); err != nil {
		return err
	}

	// 标记待回写，由后台任务批量落库
	s.dirtySessions.Store(emergencyID, struct{}{})

	return s.Feed.Publish(emergencyID, FeedEvent{
		Type:     FeedEventLocationUpdated,
		Location: &location,
	})
}

// CancelEmergency 解除一个紧急会话，操作是幂等的
// 解除前把缓存中的最新位置落库作为最后已知位置，然后销毁缓存条目并广播解除事件
func (s *EmergencyService) CancelEmergency(emergencyID string) (*models.EmergencySession, error) {
	session, alreadyResolved, err := s.resolveSession(emergencyID)
	if err != nil {
		return nil, err
	}
	if alreadyResolved {
		return session, nil
	}

	if err := s.Feed.Publish(emergencyID, FeedEvent{Type: FeedEventCancelled}); err != nil {
		return nil, err
	}

	log.Printf("[EMERGENCY] 会话已解除: id=%s", emergencyID)

	// 尽力而为地告知联系人警报已解除
	if session.User != nil && len(session.User.EmergencyContacts) > 0 {
		body := fmt.Sprintf("%s has cancelled their emergency alert. They are safe now.", session.User.Name)
		s.Notification.NotifyContacts(session.User.EmergencyContacts, body)
	}

	return session, nil
}

// resolveSession 在会话锁内完成 active -> resolved 迁移和缓存条目销毁
// 持锁保证解除落库和缓存销毁之间没有位置上报插入
func (s *EmergencyService) resolveSession(emergencyID string) (*models.EmergencySession, bool, error) {
	mu := s.lockSession(emergencyID)
	defer mu.Unlock()

	var session models.EmergencySession
	err := s.DB.Preload("User.EmergencyContacts").First(&session, "id = ?", emergencyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrSessionNotFound
	}
	if err != nil {
		return nil, false, err
	}

	// 已解除的会话重复解除直接返回当前状态
	if !session.IsActive() {
		return &session, true, nil
	}

	// 把缓存中的位置作为最后已知位置落库
	if entry, hit, cacheErr := s.Cache.Get(emergencyID); cacheErr == nil && hit {
		session.LastKnownLocation = &entry.Location
		session.LocationUpdatedAt = &entry.ReceivedAt
	} else if cacheErr != nil {
		log.Printf("[EMERGENCY] 解除时读取位置缓存失败: emergency=%s, err=%v", emergencyID, cacheErr)
	}

	now := time.Now()
	session.Status = models.EmergencyStatusResolved
	session.ResolvedAt = &now

	if err := s.DB.Omit(clause.Associations).Save(&session).Error; err != nil {
		return nil, false, err
	}

	s.dirtySessions.Delete(emergencyID)
	if err := s.Cache.Evict(emergencyID); err != nil {
		log.Printf("[EMERGENCY] 清除位置缓存失败: emergency=%s, err=%v", emergencyID, err)
	}

	// 终态会话的锁不再需要，迁移完成后清掉避免无限增长
	s.sessionLocks.Delete(emergencyID)

	return &session, false, nil
}

// GetSession 获取一个会话的持久记录
func (s *EmergencyService) GetSession(emergencyID string) (*models.EmergencySession, error) {
	var session models.EmergencySession
	err := s.DB.Preload("User").First(&session, "id = ?", emergencyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCurrentLocation 获取会话的当前位置快照
// 缓存优先；缓存未命中时返回数据库中的滞后副本，供订阅前的初始状态查询
func (s *EmergencyService) GetCurrentLocation(emergencyID string) (*LocationSnapshot, error) {
	session, err := s.GetSession(emergencyID)
	if err != nil {
		return nil, err
	}

	snapshot := &LocationSnapshot{
		EmergencyID: emergencyID,
		Status:      session.Status,
	}
	if session.User != nil {
		snapshot.Owner = &OwnerSummary{
			Name:  session.User.Name,
			Phone: session.User.Phone,
		}
	}

	if entry, hit, cacheErr := s.Cache.Get(emergencyID); cacheErr == nil && hit {
		snapshot.Location = &entry.Location
		snapshot.ObservedAt = &entry.ObservedAt
		snapshot.ReceivedAt = &entry.ReceivedAt
		snapshot.FromCache = true
		return snapshot, nil
	} else if cacheErr != nil {
		log.Printf("[EMERGENCY] 读取位置缓存失败: emergency=%s, err=%v", emergencyID, cacheErr)
	}

	snapshot.Location = session.LastKnownLocation
	snapshot.ObservedAt = session.LocationUpdatedAt
	snapshot.ReceivedAt = session.LocationUpdatedAt
	return snapshot, nil
}

// AttachRecording 把一段录音关联到会话并广播新录音事件
// 已解除的会话仍允许关联，覆盖上传在解除之后才完成的情况
func (s *EmergencyService) AttachRecording(emergencyID string, recording *models.Recording) error {
	var session models.EmergencySession
	err := s.DB.First(&session, "id = ?", emergencyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	recording.EmergencyID = &session.ID
	recording.IsEmergencyRecording = true
	if err := s.DB.Model(recording).Updates(map[string]interface{}{
		"emergency_id":           session.ID,
		"is_emergency_recording": true,
	}).Error; err != nil {
		return err
	}

	return s.Feed.Publish(emergencyID, FeedEvent{
		Type:        FeedEventNewRecording,
		RecordingID: recording.ID,
	})
}

// runLocationFlusher 周期性地把缓存中的位置回写数据库
func (s *EmergencyService) runLocationFlusher() {
	ticker := time.NewTicker(locationFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flushDirtyLocations()
		case <-s.stopChan:
			s.flushDirtyLocations()
			return
		}
	}
}

// flushDirtyLocations 把所有待回写会话的缓存位置落库
func (s *EmergencyService) flushDirtyLocations() {
	s.dirtySessions.Range(func(key, _ interface{}) bool {
		emergencyID := key.(string)
		s.dirtySessions.Delete(emergencyID)

		entry, hit, err := s.Cache.Get(emergencyID)
		if err != nil {
			log.Printf("[EMERGENCY] 回写时读取缓存失败: emergency=%s, err=%v", emergencyID, err)
			return true
		}
		if !hit {
			return true
		}

		err = s.DB.Model(&models.EmergencySession{}).
			Where("id = ? AND status = ?", emergencyID, models.EmergencyStatusActive).
			Updates(map[string]interface{}{
				"loc_latitude":        entry.Location.Latitude,
				"loc_longitude":       entry.Location.Longitude,
				"location_updated_at": entry.ReceivedAt,
			}).Error
		if err != nil {
			log.Printf("[EMERGENCY] 位置回写失败: emergency=%s, err=%v", emergencyID, err)
		}
		return true
	})
}

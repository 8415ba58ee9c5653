package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxRecordingBytes 单段录音的大小上限
const MaxRecordingBytes = 15 << 20 // 15MiB

// 列表接口单页返回的最大条数
const recordingListLimit = 50

// InterfaceRecordingService 定义录音服务接口
type InterfaceRecordingService interface {
	Ingest(userID uint, emergencyID string, filename, contentType string, data []byte) (*models.Recording, error)
	IngestAndAnalyze(userID uint, filename, contentType string, data []byte) (*models.Recording, *EmotionResult, error)
	ListRecordings(userID uint, emergencyOnly bool, query models.PaginationQuery) ([]models.Recording, models.PaginationResult, error)
	GetRecording(recordingID string) (*models.Recording, error)
	DeleteRecording(recordingID string, userID uint) error
}

// RecordingService 录音服务的实现
type RecordingService struct {
	DB           *gorm.DB
	Emergency    InterfaceEmergencyService
	Notification InterfaceNotificationService
	Analyzer     InterfaceEmotionAnalyzer
}

// NewRecordingService 创建一个新的录音服务
func NewRecordingService(db *gorm.DB, emergency InterfaceEmergencyService, notification InterfaceNotificationService, analyzer InterfaceEmotionAnalyzer) *RecordingService {
	return &RecordingService{
		DB:           db,
		Emergency:    emergency,
		Notification: notification,
		Analyzer:     analyzer,
	}
}

// Ingest 接收一段上传的录音并落库
// 校验顺序：先判空载荷，再判大小，最后判归属人；任一失败都不产生记录
// emergencyID非空时尝试关联会话，会话不存在只记日志，录音本身保留
func (s *RecordingService) Ingest(userID uint, emergencyID string, filename, contentType string, data []byte) (*models.Recording, error) {
	if len(data) == 0 {
		return nil, ErrNoPayload
	}
	if len(data) > MaxRecordingBytes {
		return nil, ErrPayloadTooLarge
	}

	var owner models.User
	err := s.DB.Preload("EmergencyContacts").First(&owner, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	recording := &models.Recording{
		ID:          uuid.New().String(),
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}

	if err := s.DB.Create(recording).Error; err != nil {
		return nil, err
	}

	log.Printf("[RECORDING] 已保存录音: id=%s, user=%d, size=%d", recording.ID, userID, recording.Size)

	if emergencyID != "" {
		if err := s.Emergency.AttachRecording(emergencyID, recording); err != nil {
			// 会话不存在或广播失败不影响录音本身
			log.Printf("[RECORDING] 关联会话失败: recording=%s, emergency=%s, err=%v", recording.ID, emergencyID, err)
		} else if len(owner.EmergencyContacts) > 0 {
			body := fmt.Sprintf("New emergency recording from %s is available.", owner.Name)
			s.Notification.NotifyContacts(owner.EmergencyContacts, body)
		}
	}

	return recording, nil
}

// IngestAndAnalyze 保存一段日常录音并进行情绪分析
// 分析失败不影响录音保存，只是没有分析结果返回
func (s *RecordingService) IngestAndAnalyze(userID uint, filename, contentType string, data []byte) (*models.Recording, *EmotionResult, error) {
	recording, err := s.Ingest(userID, "", filename, contentType, data)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), emotionAnalyzeTimeout)
	defer cancel()

	result, err := s.Analyzer.Analyze(ctx, filename, contentType, data)
	if err != nil {
		log.Printf("[RECORDING] 情绪分析失败: recording=%s, err=%v", recording.ID, err)
		return recording, nil, nil
	}

	recording.Emotion = result.Emotion
	if err := s.DB.Model(recording).Update("emotion", result.Emotion).Error; err != nil {
		log.Printf("[RECORDING] 保存情绪结果失败: recording=%s, err=%v", recording.ID, err)
	}

	return recording, result, nil
}

// ListRecordings 列出用户的录音，按时间倒序，每页最多50条
// 不返回音频二进制内容，只返回元信息
func (s *RecordingService) ListRecordings(userID uint, emergencyOnly bool, query models.PaginationQuery) ([]models.Recording, models.PaginationResult, error) {
	if query.PageNum < 1 {
		query.PageNum = 1
	}
	if query.PageSize < 1 || query.PageSize > recordingListLimit {
		query.PageSize = recordingListLimit
	}

	base := s.DB.Model(&models.Recording{}).Where("user_id = ?", userID)
	if emergencyOnly {
		base = base.Where("is_emergency_recording = ?", true)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	var recordings []models.Recording
	err := base.Session(&gorm.Session{}).Omit("data").
		Order("created_at DESC").
		Offset((query.PageNum - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&recordings).Error
	if err != nil {
		return nil, models.PaginationResult{}, err
	}

	return recordings, models.NewPaginationResult(int(total), query.PageNum, query.PageSize), nil
}

// GetRecording 获取一段录音的完整记录，包括音频内容
func (s *RecordingService) GetRecording(recordingID string) (*models.Recording, error) {
	var recording models.Recording
	err := s.DB.First(&recording, "id = ?", recordingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recording, nil
}

// DeleteRecording 删除一段录音，只允许上传者本人删除
func (s *RecordingService) DeleteRecording(recordingID string, userID uint) error {
	var recording models.Recording
	err := s.DB.Select("id", "user_id").First(&recording, "id = ?", recordingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordingNotFound
	}
	if err != nil {
		return err
	}

	if recording.UserID != userID {
		return ErrRecordingForbidden
	}

	return s.DB.Delete(&models.Recording{}, "id = ?", recordingID).Error
}

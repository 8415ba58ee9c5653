package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestStoresRecording(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")

	data := bytes.Repeat([]byte{0xAB}, 1024)
	recording, err := service.Ingest(user.ID, "", "note.webm", "audio/webm", data)
	require.NoError(t, err)
	assert.NotEmpty(t, recording.ID)
	assert.Equal(t, int64(1024), recording.Size)
	assert.False(t, recording.IsEmergencyRecording)
	assert.Nil(t, recording.EmergencyID)

	var stored models.Recording
	require.NoError(t, db.First(&stored, "id = ?", recording.ID).Error)
	assert.Equal(t, data, stored.Data)
}

func TestIngestValidationOrder(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")

	// 空载荷
	_, err := service.Ingest(user.ID, "", "empty.webm", "audio/webm", nil)
	assert.ErrorIs(t, err, ErrNoPayload)

	// 超过上限，即使归属人也无效仍然先报大小错误
	oversized := make([]byte, MaxRecordingBytes+1)
	_, err = service.Ingest(9999, "", "big.webm", "audio/webm", oversized)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	// 归属人无效
	_, err = service.Ingest(9999, "", "note.webm", "audio/webm", []byte{1})
	assert.ErrorIs(t, err, ErrUserNotFound)

	// 任何失败都不残留记录
	var count int64
	require.NoError(t, db.Model(&models.Recording{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestExactLimitAccepted(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")

	data := make([]byte, MaxRecordingBytes)
	recording, err := service.Ingest(user.ID, "", "max.webm", "audio/webm", data)
	require.NoError(t, err)
	assert.Equal(t, int64(MaxRecordingBytes), recording.Size)
}

func TestIngestAttachesToEmergencySession(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, feed, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")
	session, err := emergency.TriggerSOS(&user.ID, nil, "")
	require.NoError(t, err)
	gateway.waitForSends(t, 2) // SOS通知

	sub := feed.Subscribe(session.ID)
	defer feed.Unsubscribe(sub)

	recording, err := service.Ingest(user.ID, session.ID, "evidence.webm", "audio/webm", []byte{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, recording.EmergencyID)
	assert.Equal(t, session.ID, *recording.EmergencyID)
	assert.True(t, recording.IsEmergencyRecording)

	select {
	case event := <-sub.Events():
		assert.Equal(t, FeedEventNewRecording, event.Type)
		assert.Equal(t, recording.ID, event.RecordingID)
	case <-time.After(time.Second):
		t.Fatal("no recording event received")
	}

	// 联系人收到新录音通知
	gateway.waitForSends(t, 2)
}

func TestIngestWithUnknownSessionKeepsRecording(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")

	// 会话不存在时录音保留但不关联
	recording, err := service.Ingest(user.ID, "no-such-session", "orphan.webm", "audio/webm", []byte{1})
	require.NoError(t, err)
	assert.Nil(t, recording.EmergencyID)
	assert.False(t, recording.IsEmergencyRecording)
}

func TestListRecordingsExcludesPayload(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")
	other := createTestUser(t, db, "other@example.com")

	for i := 0; i < 3; i++ {
		_, err := service.Ingest(user.ID, "", "clip.webm", "audio/webm", []byte{1, 2, 3, 4})
		require.NoError(t, err)
	}
	_, err := service.Ingest(other.ID, "", "theirs.webm", "audio/webm", []byte{9})
	require.NoError(t, err)

	recordings, pagination, err := service.ListRecordings(user.ID, false, models.PaginationQuery{})
	require.NoError(t, err)
	require.Len(t, recordings, 3)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 1, pagination.PageNum)
	for _, rec := range recordings {
		assert.Equal(t, user.ID, rec.UserID)
		// 列表不携带音频内容
		assert.Empty(t, rec.Data)
		assert.Equal(t, int64(4), rec.Size)
	}

	// 分页生效
	paged, pagination, err := service.ListRecordings(user.ID, false, models.PaginationQuery{PageNum: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.PageNum)
}

func TestListRecordingsEmergencyOnlyFilter(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")
	session, err := emergency.TriggerSOS(&user.ID, nil, "")
	require.NoError(t, err)
	gateway.waitForSends(t, 2)

	_, err = service.Ingest(user.ID, "", "daily.webm", "audio/webm", []byte{1})
	require.NoError(t, err)
	emergencyRec, err := service.Ingest(user.ID, session.ID, "evidence.webm", "audio/webm", []byte{2})
	require.NoError(t, err)

	all, _, err := service.ListRecordings(user.ID, false, models.PaginationQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyEmergency, _, err := service.ListRecordings(user.ID, true, models.PaginationQuery{})
	require.NoError(t, err)
	require.Len(t, onlyEmergency, 1)
	assert.Equal(t, emergencyRec.ID, onlyEmergency[0].ID)
}

func TestDeleteRecordingOwnershipEnforced(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), NewLogEmotionAnalyzer())

	user := createTestUser(t, db, "asha@example.com")
	other := createTestUser(t, db, "other@example.com")

	recording, err := service.Ingest(user.ID, "", "mine.webm", "audio/webm", []byte{1})
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteRecording(recording.ID, other.ID), ErrRecordingForbidden)
	assert.ErrorIs(t, service.DeleteRecording("no-such-id", user.ID), ErrRecordingNotFound)

	require.NoError(t, service.DeleteRecording(recording.ID, user.ID))
	_, err = service.GetRecording(recording.ID)
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

// fakeEmotionAnalyzer 返回固定结果或固定错误的分析器
type fakeEmotionAnalyzer struct {
	result *EmotionResult
	err    error
}

func (f *fakeEmotionAnalyzer) Analyze(ctx context.Context, filename, contentType string, data []byte) (*EmotionResult, error) {
	return f.result, f.err
}

func TestIngestAndAnalyzeStoresEmotion(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	analyzer := &fakeEmotionAnalyzer{result: &EmotionResult{Emotion: "angry"}}
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), analyzer)

	user := createTestUser(t, db, "asha@example.com")

	recording, result, err := service.IngestAndAnalyze(user.ID, "mood.webm", "audio/webm", []byte{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "angry", result.Emotion)
	assert.Equal(t, "angry", recording.Emotion)

	// 分析结果已落库
	var stored models.Recording
	require.NoError(t, db.First(&stored, "id = ?", recording.ID).Error)
	assert.Equal(t, "angry", stored.Emotion)
}

func TestIngestAndAnalyzeKeepsRecordingOnAnalyzerFailure(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	analyzer := &fakeEmotionAnalyzer{err: errors.New("analysis service unavailable")}
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), analyzer)

	user := createTestUser(t, db, "asha@example.com")

	// 分析失败不影响录音保存，只是没有结果
	recording, result, err := service.IngestAndAnalyze(user.ID, "mood.webm", "audio/webm", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Nil(t, result)
	require.NotNil(t, recording)
	assert.Empty(t, recording.Emotion)

	var stored models.Recording
	require.NoError(t, db.First(&stored, "id = ?", recording.ID).Error)
	assert.Empty(t, stored.Emotion)
}

func TestIngestAndAnalyzeValidationRejectsBeforeAnalysis(t *testing.T) {
	db := setupTestDB(t)
	emergency, _, _, gateway := newTestEmergencyService(t, db)
	analyzer := &fakeEmotionAnalyzer{result: &EmotionResult{Emotion: "calm"}}
	service := NewRecordingService(db, emergency, NewNotificationService(gateway), analyzer)

	user := createTestUser(t, db, "asha@example.com")

	_, result, err := service.IngestAndAnalyze(user.ID, "empty.webm", "audio/webm", nil)
	assert.ErrorIs(t, err, ErrNoPayload)
	assert.Nil(t, result)

	var count int64
	require.NoError(t, db.Model(&models.Recording{}).Count(&count).Error)
	assert.Zero(t, count)
}

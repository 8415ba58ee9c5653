package controllers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ArunGarimella04/Guardian-AI/internal/app/middleware"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InterfaceRecordingController 定义录音控制器接口
type InterfaceRecordingController interface {
	Upload()
	UploadEmergency()
	Analyze()
	ListUserRecordings()
	GetAudio()
	Delete()
}

// RecordingController 处理录音上传和管理请求
type RecordingController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewRecordingController 创建一个新的录音控制器
func NewRecordingController(ctx *gin.Context, container *container.ServiceContainer) *RecordingController {
	return &RecordingController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleRecordingFunc 返回一个处理录音请求的Gin处理函数
func HandleRecordingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewRecordingController(ctx, container)

		switch method {
		case "upload":
			controller.Upload()
		case "uploadEmergency":
			controller.UploadEmergency()
		case "analyze":
			controller.Analyze()
		case "listUserRecordings":
			controller.ListUserRecordings()
		case "getAudio":
			controller.GetAudio()
		case "delete":
			controller.Delete()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// stagedAudio 表示一段已读入内存的上传音频
type stagedAudio struct {
	UserID      uint
	Filename    string
	ContentType string
	Data        []byte
}

// stageUpload 校验multipart上传并把音频读入内存
// 音频先落到临时文件再读入，无论哪条路径退出临时文件都会被删除；
// 失败时已写入错误响应，返回ok=false
func (c *RecordingController) stageUpload() (*stagedAudio, bool) {
	userIDValue := c.Ctx.PostForm("user_id")
	userID, err := strconv.ParseUint(userIDValue, 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的用户ID", nil)
		return nil, false
	}

	file, err := c.Ctx.FormFile("audio")
	if err != nil {
		response.Fail(c.Ctx, code.ErrNoPayload, nil)
		return nil, false
	}

	// 声明的大小先行检查，避免为超大文件做无谓的落盘
	if file.Size > services.MaxRecordingBytes {
		response.Fail(c.Ctx, code.ErrPayloadTooLarge, nil)
		return nil, false
	}

	stagingPath := filepath.Join(os.TempDir(), fmt.Sprintf("guardian-upload-%s", uuid.New().String()))
	// 在落盘之前注册清理，写到一半失败的残留文件同样会被删除
	defer os.Remove(stagingPath)
	if err := c.Ctx.SaveUploadedFile(file, stagingPath); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrUnknown, "保存上传文件失败: "+err.Error(), nil)
		return nil, false
	}

	data, err := os.ReadFile(stagingPath)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrUnknown, "读取上传文件失败: "+err.Error(), nil)
		return nil, false
	}

	return &stagedAudio{
		UserID:      uint(userID),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// writeIngestError 把录音服务的哨兵错误映射为业务错误码
// 已处理时返回true
func (c *RecordingController) writeIngestError(err error) bool {
	switch {
	case errors.Is(err, services.ErrNoPayload):
		response.Fail(c.Ctx, code.ErrNoPayload, nil)
	case errors.Is(err, services.ErrPayloadTooLarge):
		response.Fail(c.Ctx, code.ErrPayloadTooLarge, nil)
	case errors.Is(err, services.ErrUserNotFound):
		response.Fail(c.Ctx, code.ErrInvalidOwner, nil)
	case err != nil:
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "保存录音失败: "+err.Error(), nil)
	default:
		return false
	}
	return true
}

// ingest 接收multipart上传的音频并交给录音服务
func (c *RecordingController) ingest(emergency bool) {
	staged, ok := c.stageUpload()
	if !ok {
		return
	}

	var emergencyID string
	if emergency {
		emergencyID = c.Ctx.PostForm("emergency_id")
	}

	recordingService := c.Container.GetService("recording").(services.InterfaceRecordingService)
	recording, err := recordingService.Ingest(staged.UserID, emergencyID, staged.Filename, staged.ContentType, staged.Data)
	if c.writeIngestError(err) {
		return
	}

	response.Success(c.Ctx, gin.H{
		"recording_id":           recording.ID,
		"filename":               recording.Filename,
		"size":                   recording.Size,
		"is_emergency_recording": recording.IsEmergencyRecording,
		"emergency_id":           recording.EmergencyID,
	})
}

// 1. Upload 处理日常录音上传
// @Summary      Upload Recording
// @Description  Upload an audio recording, limited to 15MiB
// @Tags         Recording
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id formData int  true "Owner user ID"
// @Param        audio   formData file true "Audio file"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /recordings [post]
func (c *RecordingController) Upload() {
	c.ingest(false)
}

// 2. UploadEmergency 处理紧急录音上传并关联会话
// @Summary      Upload Emergency Recording
// @Description  Upload an audio recording and attach it to an emergency session
// @Tags         Recording
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id      formData int    true  "Owner user ID"
// @Param        emergency_id formData string false "Emergency session ID to attach to"
// @Param        audio        formData file   true  "Audio file"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /recordings/emergency [post]
func (c *RecordingController) UploadEmergency() {
	c.ingest(true)
}

// 3. Analyze 保存录音并返回情绪分析结果
// @Summary      Analyze Recording
// @Description  Upload an audio recording, store it and return an emotion analysis result
// @Tags         Recording
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id formData int  true "Owner user ID"
// @Param        audio   formData file true "Audio file"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /recordings/analyze [post]
func (c *RecordingController) Analyze() {
	staged, ok := c.stageUpload()
	if !ok {
		return
	}

	recordingService := c.Container.GetService("recording").(services.InterfaceRecordingService)
	recording, result, err := recordingService.IngestAndAnalyze(staged.UserID, staged.Filename, staged.ContentType, staged.Data)
	if c.writeIngestError(err) {
		return
	}

	payload := gin.H{
		"recording_id": recording.ID,
		"filename":     recording.Filename,
		"size":         recording.Size,
	}
	if result != nil {
		payload["emotion"] = result.Emotion
	}
	response.Success(c.Ctx, payload)
}

// 4. ListUserRecordings 列出用户的录音元信息
// @Summary      List User Recordings
// @Description  List a user's recordings, newest first, capped at 50, without audio payloads
// @Tags         Recording
// @Produce      json
// @Param        id             path  int    true  "User ID"
// @Param        emergency_only query bool   false "Only emergency recordings"
// @Param        pageNum        query int    false "Page number, defaults to 1"
// @Param        pageSize       query int    false "Page size, capped at 50"
// @Success      200  {object}  map[string]interface{}
// @Router       /users/{id}/recordings [get]
// @Security     BearerAuth
func (c *RecordingController) ListUserRecordings() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的用户ID", nil)
		return
	}

	authID, ok := middleware.GetUserID(c.Ctx)
	if !ok || authID != uint(id) {
		response.Fail(c.Ctx, code.ErrForbidden, nil)
		return
	}

	emergencyOnly := c.Ctx.Query("emergency_only") == "true"

	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的分页参数: "+err.Error(), nil)
		return
	}

	recordingService := c.Container.GetService("recording").(services.InterfaceRecordingService)
	recordings, pagination, err := recordingService.ListRecordings(uint(id), emergencyOnly, query)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取录音列表失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"pagination": pagination,
		"recordings": recordings,
	})
}

// 5. GetAudio 下载一段录音的音频内容
// @Summary      Get Recording Audio
// @Description  Download the audio payload of a recording
// @Tags         Recording
// @Produce      octet-stream
// @Param        id path string true "Recording ID"
// @Success      200  {string}  binary "audio bytes"
// @Failure      404  {object}  response.Response
// @Router       /recordings/{id}/audio [get]
// @Security     BearerAuth
func (c *RecordingController) GetAudio() {
	recordingID := c.Ctx.Param("id")

	recordingService := c.Container.GetService("recording").(services.InterfaceRecordingService)
	recording, err := recordingService.GetRecording(recordingID)
	if errors.Is(err, services.ErrRecordingNotFound) {
		response.Fail(c.Ctx, code.ErrRecordingNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取录音失败: "+err.Error(), nil)
		return
	}

	authID, ok := middleware.GetUserID(c.Ctx)
	if !ok || authID != recording.UserID {
		response.Fail(c.Ctx, code.ErrForbidden, nil)
		return
	}

	contentType := recording.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", recording.Filename))
	c.Ctx.Data(200, contentType, recording.Data)
}

// 6. Delete 删除一段录音
// @Summary      Delete Recording
// @Description  Delete a recording; only the uploader may delete it
// @Tags         Recording
// @Produce      json
// @Param        id path string true "Recording ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /recordings/{id} [delete]
// @Security     BearerAuth
func (c *RecordingController) Delete() {
	recordingID := c.Ctx.Param("id")

	authID, ok := middleware.GetUserID(c.Ctx)
	if !ok {
		response.Unauthorized(c.Ctx)
		return
	}

	recordingService := c.Container.GetService("recording").(services.InterfaceRecordingService)
	err := recordingService.DeleteRecording(recordingID, authID)
	switch {
	case errors.Is(err, services.ErrRecordingNotFound):
		response.Fail(c.Ctx, code.ErrRecordingNotFound, nil)
		return
	case errors.Is(err, services.ErrRecordingForbidden):
		response.Fail(c.Ctx, code.ErrForbidden, nil)
		return
	case err != nil:
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "删除录音失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{"recording_id": recordingID})
}

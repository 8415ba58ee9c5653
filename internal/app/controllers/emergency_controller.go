package controllers

import (
	"errors"
	"io"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceEmergencyController 定义紧急会话控制器接口
type InterfaceEmergencyController interface {
	TriggerSOS()
	UpdateLocation()
	GetCurrentLocation()
	StreamFeed()
	CancelEmergency()
}

// EmergencyController 处理紧急会话相关的请求
type EmergencyController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewEmergencyController 创建一个新的紧急会话控制器
func NewEmergencyController(ctx *gin.Context, container *container.ServiceContainer) *EmergencyController {
	return &EmergencyController{
		Ctx:       ctx,
		Container: container,
	}
}

// LocationPayload 一对经纬度坐标
type LocationPayload struct {
	Lat float64 `json:"lat" binding:"required" example:"12.9716"`
	Lng float64 `json:"lng" binding:"required" example:"77.5946"`
}

// TriggerSOSRequest 表示SOS触发请求
type TriggerSOSRequest struct {
	UserID   *uint            `json:"user_id" example:"1"` // 可选，不提供或无效时按匿名处理
	Location *LocationPayload `json:"location"`
	Notes    string           `json:"notes" example:"Walking home alone, feeling unsafe"`
}

// UpdateLocationRequest 表示位置上报请求
type UpdateLocationRequest struct {
	Location   LocationPayload `json:"location" binding:"required"`
	ObservedAt *int64          `json:"observed_at" example:"1719820800000"` // 毫秒时间戳，可选
}

// HandleEmergencyFunc 返回一个处理紧急会话请求的Gin处理函数
func HandleEmergencyFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewEmergencyController(ctx, container)

		switch method {
		case "triggerSOS":
			controller.TriggerSOS()
		case "updateLocation":
			controller.UpdateLocation()
		case "getCurrentLocation":
			controller.GetCurrentLocation()
		case "streamFeed":
			controller.StreamFeed()
		case "cancelEmergency":
			controller.CancelEmergency()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. TriggerSOS 处理触发SOS警报的请求
// @Summary      Trigger SOS Alert
// @Description  Create a new emergency session and notify the user's emergency contacts
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Param        request body TriggerSOSRequest true "SOS request parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /emergency/sos [post]
func (c *EmergencyController) TriggerSOS() {
	var req TriggerSOSRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	emergencyService := c.Container.GetService("emergency").(services.InterfaceEmergencyService)

	var location *models.Location
	if req.Location != nil {
		location = &models.Location{Latitude: req.Location.Lat, Longitude: req.Location.Lng}
	}

	session, err := emergencyService.TriggerSOS(req.UserID, location, req.Notes)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "创建紧急会话失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"emergency_id": session.ID,
		"status":       session.Status,
		"created_at":   session.CreatedAt,
	})
}

// 2. UpdateLocation 处理活动会话的位置上报
// @Summary      Update Live Location
// @Description  Report the latest location of an active emergency session
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Param        id      path string                true "Emergency session ID"
// @Param        request body UpdateLocationRequest true "Location parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /emergency/{id}/location [put]
func (c *EmergencyController) UpdateLocation() {
	emergencyID := c.Ctx.Param("id")

	var req UpdateLocationRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	if req.Location.Lat < -90 || req.Location.Lat > 90 || req.Location.Lng < -180 || req.Location.Lng > 180 {
		response.Fail(c.Ctx, code.ErrInvalidLocation, nil)
		return
	}

	observedAt := time.Now()
	if req.ObservedAt != nil {
		observedAt = time.UnixMilli(*req.ObservedAt)
	}

	emergencyService := c.Container.GetService("emergency").(services.InterfaceEmergencyService)
	err := emergencyService.UpdateLocation(emergencyID, models.Location{
		Latitude:  req.Location.Lat,
		Longitude: req.Location.Lng,
	}, observedAt)
	if errors.Is(err, services.ErrSessionNotFound) {
		response.Fail(c.Ctx, code.ErrEmergencyNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrFeedUnavailable, "位置更新失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{"emergency_id": emergencyID})
}

// 3. GetCurrentLocation 获取会话的当前位置快照
// @Summary      Get Current Location
// @Description  Get the latest known location of an emergency session, for trackers joining mid-session
// @Tags         Emergency
// @Produce      json
// @Param        id path string true "Emergency session ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  response.Response
// @Router       /emergency/{id}/location [get]
func (c *EmergencyController) GetCurrentLocation() {
	emergencyID := c.Ctx.Param("id")

	emergencyService := c.Container.GetService("emergency").(services.InterfaceEmergencyService)
	snapshot, err := emergencyService.GetCurrentLocation(emergencyID)
	if errors.Is(err, services.ErrSessionNotFound) {
		response.Fail(c.Ctx, code.ErrEmergencyNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取位置失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, snapshot)
}

// 4. StreamFeed 通过SSE订阅会话的实时事件流
// @Summary      Stream Session Events
// @Description  Subscribe to live location, cancellation and recording events via Server-Sent Events
// @Tags         Emergency
// @Produce      text/event-stream
// @Param        id path string true "Emergency session ID"
// @Success      200  {string}  string "event stream"
// @Failure      404  {object}  response.Response
// @Router       /emergency/{id}/feed [get]
func (c *EmergencyController) StreamFeed() {
	emergencyID := c.Ctx.Param("id")

	emergencyService := c.Container.GetService("emergency").(services.InterfaceEmergencyService)
	feedService := c.Container.GetService("session_feed").(services.InterfaceSessionFeedService)

	// 会话必须存在才允许订阅，已解除的会话允许订阅但不会再有位置事件
	if _, err := emergencyService.GetSession(emergencyID); err != nil {
		response.Fail(c.Ctx, code.ErrEmergencyNotFound, nil)
		return
	}

	sub := feedService.Subscribe(emergencyID)
	defer feedService.Unsubscribe(sub)

	c.Ctx.Header("Content-Type", "text/event-stream")
	c.Ctx.Header("Cache-Control", "no-cache")
	c.Ctx.Header("Connection", "keep-alive")

	// 订阅不回放历史事件，客户端需先查询当前位置再消费增量
	clientGone := c.Ctx.Request.Context().Done()
	c.Ctx.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.Ctx.SSEvent(event.Type, event)
			// 会话解除后不再有后续事件，结束流
			return event.Type != services.FeedEventCancelled
		case <-clientGone:
			return false
		}
	})
}

// 5. CancelEmergency 解除一个紧急会话
// @Summary      Cancel Emergency
// @Description  Resolve an active emergency session; the operation is idempotent
// @Tags         Emergency
// @Produce      json
// @Param        id path string true "Emergency session ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  response.Response
// @Router       /emergency/{id}/cancel [post]
func (c *EmergencyController) CancelEmergency() {
	emergencyID := c.Ctx.Param("id")

	emergencyService := c.Container.GetService("emergency").(services.InterfaceEmergencyService)
	session, err := emergencyService.CancelEmergency(emergencyID)
	if errors.Is(err, services.ErrSessionNotFound) {
		response.Fail(c.Ctx, code.ErrEmergencyNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "解除紧急会话失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"emergency_id": session.ID,
		"status":       session.Status,
		"resolved_at":  session.ResolvedAt,
	})
}

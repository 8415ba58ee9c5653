package controllers

import (
	"errors"
	"strconv"

	"github.com/ArunGarimella04/Guardian-AI/internal/app/middleware"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceUserController 定义用户控制器接口
type InterfaceUserController interface {
	GetUser()
	UpdateUser()
}

// UserController 处理用户资料相关的请求
type UserController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewUserController 创建一个新的用户控制器
func NewUserController(ctx *gin.Context, container *container.ServiceContainer) *UserController {
	return &UserController{
		Ctx:       ctx,
		Container: container,
	}
}

// UpdateUserRequest 表示用户资料更新请求
type UpdateUserRequest struct {
	Name              string            `json:"name" example:"Arun"`
	Phone             string            `json:"phone" example:"+919800000000"`
	Password          string            `json:"password" example:"newsecret123"`
	EmergencyContacts *[]ContactPayload `json:"emergency_contacts"` // 提供时整体替换
}

// HandleUserFunc 返回一个处理用户请求的Gin处理函数
func HandleUserFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewUserController(ctx, container)

		switch method {
		case "getUser":
			controller.GetUser()
		case "updateUser":
			controller.UpdateUser()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// requestedUserID 解析路径中的用户ID并校验是否为当前登录用户
func (c *UserController) requestedUserID() (uint, bool) {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的用户ID", nil)
		return 0, false
	}

	authID, ok := middleware.GetUserID(c.Ctx)
	if !ok || authID != uint(id) {
		response.Fail(c.Ctx, code.ErrForbidden, nil)
		return 0, false
	}
	return uint(id), true
}

// 1. GetUser 获取用户资料及紧急联系人
// @Summary      Get User Profile
// @Description  Get a user's profile including registered emergency contacts
// @Tags         User
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
// @Security     BearerAuth
func (c *UserController) GetUser() {
	userID, ok := c.requestedUserID()
	if !ok {
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.GetUserByID(userID)
	if errors.Is(err, services.ErrUserNotFound) {
		response.Fail(c.Ctx, code.ErrUserNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取用户失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, user)
}

// 2. UpdateUser 更新用户资料
// @Summary      Update User Profile
// @Description  Update profile fields; providing emergency_contacts replaces the whole list
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        id      path int               true "User ID"
// @Param        request body UpdateUserRequest true "Update parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [put]
// @Security     BearerAuth
func (c *UserController) UpdateUser() {
	userID, ok := c.requestedUserID()
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	updates := &models.User{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	}
	if req.EmergencyContacts != nil {
		updates.EmergencyContacts = make([]models.EmergencyContact, 0, len(*req.EmergencyContacts))
		for _, contact := range *req.EmergencyContacts {
			updates.EmergencyContacts = append(updates.EmergencyContacts, models.EmergencyContact{
				Name:  contact.Name,
				Phone: contact.Phone,
			})
		}
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.UpdateProfile(userID, updates)
	if errors.Is(err, services.ErrUserNotFound) {
		response.Fail(c.Ctx, code.ErrUserNotFound, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "更新用户失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, user)
}

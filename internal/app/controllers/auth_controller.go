package controllers

import (
	"errors"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceAuthController 定义认证控制器接口
type InterfaceAuthController interface {
	Register()
	Login()
}

// AuthController 处理注册和登录请求
type AuthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuthController 创建一个新的认证控制器
func NewAuthController(ctx *gin.Context, container *container.ServiceContainer) *AuthController {
	return &AuthController{
		Ctx:       ctx,
		Container: container,
	}
}

// ContactPayload 表示一个紧急联系人
type ContactPayload struct {
	Name  string `json:"name" binding:"required" example:"Priya"`
	Phone string `json:"phone" binding:"required" example:"+919800000001"`
}

// RegisterRequest 表示注册请求
type RegisterRequest struct {
	Name              string           `json:"name" binding:"required" example:"Arun"`
	Email             string           `json:"email" binding:"required,email" example:"arun@example.com"`
	Phone             string           `json:"phone" binding:"required" example:"+919800000000"`
	Password          string           `json:"password" binding:"required,min=6" example:"secret123"`
	EmergencyContacts []ContactPayload `json:"emergency_contacts"`
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"arun@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// HandleAuthFunc 返回一个处理认证请求的Gin处理函数
func HandleAuthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuthController(ctx, container)

		switch method {
		case "register":
			controller.Register()
		case "login":
			controller.Login()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. Register 处理用户注册请求
// @Summary      Register User
// @Description  Register a new user together with their emergency contacts
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /auth/register [post]
func (c *AuthController) Register() {
	var req RegisterRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	for _, contact := range req.EmergencyContacts {
		user.EmergencyContacts = append(user.EmergencyContacts, models.EmergencyContact{
			Name:  contact.Name,
			Phone: contact.Phone,
		})
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	err := userService.Register(user)
	if errors.Is(err, services.ErrEmailAlreadyExist) {
		response.Fail(c.Ctx, code.ErrUserAlreadyExist, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "注册失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"user_id": user.ID,
		"name":    user.Name,
		"email":   user.Email,
	})
}

// 2. Login 处理用户登录请求
// @Summary      Login
// @Description  Verify email and password and issue a JWT token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  response.Response
// @Router       /auth/login [post]
func (c *AuthController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, token, err := userService.Login(req.Email, req.Password)
	if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrPasswordIncorrect) {
		// 统一按密码错误返回，不暴露邮箱是否注册
		response.Fail(c.Ctx, code.ErrUserPasswordIncorrect, nil)
		return
	}
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "登录失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

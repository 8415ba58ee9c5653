package controllers

import (
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceChatbotController 定义安全助手控制器接口
type InterfaceChatbotController interface {
	Chat()
}

// ChatbotController 处理安全助手对话请求
type ChatbotController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewChatbotController 创建一个新的安全助手控制器
func NewChatbotController(ctx *gin.Context, container *container.ServiceContainer) *ChatbotController {
	return &ChatbotController{
		Ctx:       ctx,
		Container: container,
	}
}

// ChatRequest 表示对话请求
type ChatRequest struct {
	Message string `json:"message" binding:"required" example:"I think someone is following me"`
}

// HandleChatbotFunc 返回一个处理对话请求的Gin处理函数
func HandleChatbotFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewChatbotController(ctx, container)

		switch method {
		case "chat":
			controller.Chat()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. Chat 处理一轮对话
// @Summary      Safety Chatbot
// @Description  Get a safety suggestion for a message, keyword based, no conversation state
// @Tags         Chatbot
// @Accept       json
// @Produce      json
// @Param        request body ChatRequest true "Chat parameters"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /chatbot [post]
func (c *ChatbotController) Chat() {
	var req ChatRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	chatbotService := c.Container.GetService("chatbot").(services.InterfaceChatbotService)
	reply := chatbotService.Reply(req.Message)

	response.Success(c.Ctx, gin.H{
		"message": req.Message,
		"reply":   reply,
	})
}

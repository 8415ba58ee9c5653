package routes

import (
	"time"

	_ "github.com/ArunGarimella04/Guardian-AI/docs"
	"github.com/ArunGarimella04/Guardian-AI/internal/app/controllers"
	"github.com/ArunGarimella04/Guardian-AI/internal/app/middleware"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/database"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(pool *database.ConnectionPool, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 创建服务容器
	serviceContainer := container.NewServiceContainer(pool.GetDB(), cfg)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg)
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerRoutes(r, serviceContainer, pool)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
	pool *database.ConnectionPool,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container, pool)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
// SOS触发、位置上报、解除和实时订阅都不要求登录态，
// 求助者在紧急情况下可能没有可用的会话，跟踪端只持有链接
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	pool *database.ConnectionPool,
) {
	// 添加IP限流中间件 - 每秒允许10个请求，最多突发20个请求
	api.Use(middleware.IPRateLimiter(10, 20))

	// 健康检查路由
	healthController := controllers.NewHealthCheckController(pool)
	api.GET("/ping", healthController.Ping)
	api.GET("/health", healthController.Ping) // 兼容Docker健康检查的路由

	// 认证路由
	api.POST("/auth/register", controllers.HandleAuthFunc(container, "register"))
	api.POST("/auth/login", controllers.HandleAuthFunc(container, "login"))

	// 紧急会话路由
	emergencyGroup := api.Group("/emergency")
	emergencyGroup.POST("/sos", controllers.HandleEmergencyFunc(container, "triggerSOS"))
	emergencyGroup.PUT("/:id/location", controllers.HandleEmergencyFunc(container, "updateLocation"))
	emergencyGroup.GET("/:id/location", controllers.HandleEmergencyFunc(container, "getCurrentLocation"))
	emergencyGroup.GET("/:id/feed", controllers.HandleEmergencyFunc(container, "streamFeed"))
	emergencyGroup.POST("/:id/cancel", controllers.HandleEmergencyFunc(container, "cancelEmergency"))

	// 录音上传路由，紧急通道不要求登录态
	api.POST("/recordings", controllers.HandleRecordingFunc(container, "upload"))
	api.POST("/recordings/emergency", controllers.HandleRecordingFunc(container, "uploadEmergency"))
	api.POST("/recordings/analyze", controllers.HandleRecordingFunc(container, "analyze"))

	// 安全场所路由，相同坐标的查询结果短暂缓存
	api.GET("/safe-places", middleware.CacheByParams(1*time.Minute, "lat", "lng", "type"), controllers.HandleSafePlaceFunc(container, "getNearby"))
	api.GET("/safe-places/:id", controllers.HandleSafePlaceFunc(container, "getDetails"))

	// 安全助手路由
	api.POST("/chatbot", controllers.HandleChatbotFunc(container, "chat"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 添加认证中间件
	auth := api.Group("/")
	auth.Use(middleware.AuthenticateUser())

	// 添加通用限流中间件 - 每秒30个请求，最多突发50个请求
	auth.Use(middleware.IPRateLimiter(30, 50))

	// 用户资料路由
	userGroup := auth.Group("/users")
	userGroup.GET("/:id", controllers.HandleUserFunc(container, "getUser"))
	userGroup.PUT("/:id", controllers.HandleUserFunc(container, "updateUser"))
	userGroup.GET("/:id/recordings", controllers.HandleRecordingFunc(container, "listUserRecordings"))

	// 录音管理路由
	recordingGroup := auth.Group("/recordings")
	recordingGroup.GET("/:id/audio", controllers.HandleRecordingFunc(container, "getAudio"))
	recordingGroup.DELETE("/:id", controllers.HandleRecordingFunc(container, "delete"))
}

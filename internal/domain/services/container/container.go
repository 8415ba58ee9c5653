package container

import (
	"log"
	"sync"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"

	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 基础服务
	jwtService services.InterfaceJWTService

	// 实时通道与缓存服务
	locationCacheService services.InterfaceLocationCacheService
	sessionFeedService   services.InterfaceSessionFeedService

	// 通知服务
	smsGateway          services.InterfaceSMSGateway
	notificationService services.InterfaceNotificationService

	// 音频情绪分析器
	emotionAnalyzer services.InterfaceEmotionAnalyzer

	// 业务服务
	userService      services.InterfaceUserService
	emergencyService services.InterfaceEmergencyService
	recordingService services.InterfaceRecordingService
	safePlaceService services.InterfaceSafePlaceService
	chatbotService   services.InterfaceChatbotService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config)

	// 初始化位置缓存，Redis不可用时降级为进程内缓存
	redisCache := services.NewRedisLocationCacheService(c.config)
	if err := redisCache.Ping(); err != nil {
		log.Printf("Redis连接测试失败: %v，位置缓存降级为进程内模式", err)
		c.locationCacheService = services.NewMemoryLocationCacheService()
	} else {
		c.locationCacheService = redisCache
	}

	// 初始化会话推送服务并连接MQTT
	feed := services.NewSessionFeedService(c.config)
	if err := feed.Connect(); err != nil {
		log.Printf("MQTT服务连接失败: %v", err)
	}
	c.sessionFeedService = feed

	// 初始化短信网关，未配置凭证时使用日志模拟网关
	if c.config.SMSAccountSID != "" {
		c.smsGateway = services.NewHTTPSMSGateway(c.config)
	} else {
		log.Println("未配置短信网关凭证，使用日志模拟网关")
		c.smsGateway = services.NewLogSMSGateway()
	}
	c.notificationService = services.NewNotificationService(c.smsGateway)

	// 初始化情绪分析器，未配置分析服务地址时使用日志模拟分析器
	if c.config.EmotionAPIBaseURL != "" {
		c.emotionAnalyzer = services.NewHTTPEmotionAnalyzer(c.config)
	} else {
		log.Println("未配置情绪分析服务地址，使用日志模拟分析器")
		c.emotionAnalyzer = services.NewLogEmotionAnalyzer()
	}

	// 初始化业务服务
	c.userService = services.NewUserService(c.db, c.jwtService)
	c.emergencyService = services.NewEmergencyService(c.db, c.locationCacheService, c.sessionFeedService, c.notificationService, c.config)
	c.recordingService = services.NewRecordingService(c.db, c.emergencyService, c.notificationService, c.emotionAnalyzer)
	c.safePlaceService = services.NewSafePlaceService()
	c.chatbotService = services.NewChatbotService()
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "location_cache":
		return c.locationCacheService
	case "session_feed":
		return c.sessionFeedService
	case "sms_gateway":
		return c.smsGateway
	case "notification":
		return c.notificationService
	case "emotion_analyzer":
		return c.emotionAnalyzer
	case "user":
		return c.userService
	case "emergency":
		return c.emergencyService
	case "recording":
		return c.recordingService
	case "safe_place":
		return c.safePlaceService
	case "chatbot":
		return c.chatbotService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Shutdown 停止容器内有后台任务的服务
func (c *ServiceContainer) Shutdown() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.emergencyService != nil {
		c.emergencyService.Stop()
	}
	if c.sessionFeedService != nil {
		c.sessionFeedService.Disconnect()
	}
}

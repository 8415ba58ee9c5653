package services

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// InterfaceSessionFeedService 定义紧急会话实时推送通道接口
// 每个会话ID对应一个主题；投递是尽力而为、至多一次，不回放历史事件，
// 订阅者订阅后需要自行调用 GetCurrentLocation 获取当前状态
type InterfaceSessionFeedService interface {
	Connect() error
	Disconnect()
	Subscribe(emergencyID string) *FeedSubscription
	Unsubscribe(sub *FeedSubscription)
	Publish(emergencyID string, event FeedEvent) error
	SubscriberCount(emergencyID string) int
}

// 事件类型常量
const (
	// 位置更新事件
	FeedEventLocationUpdated = "location-updated"

	// 会话解除事件，收到后订阅者不应再期待位置事件
	FeedEventCancelled = "emergency-cancelled"

	// 新录音事件
	FeedEventNewRecording = "new-recording"
)

// 每个订阅的事件缓冲区大小，写满时丢弃事件而不是阻塞发布方
const feedSubscriptionBuffer = 16

// FeedEvent 推送给订阅者的事件
type FeedEvent struct {
	Type        string           `json:"type"`
	EmergencyID string           `json:"emergency_id"`
	Location    *models.Location `json:"location,omitempty"`
	RecordingID string           `json:"recording_id,omitempty"`
	Timestamp   int64            `json:"timestamp"`
}

// FeedSubscription 一个订阅者在某个会话主题上的订阅句柄
type FeedSubscription struct {
	ID          string
	EmergencyID string

	events chan FeedEvent
	closed bool
}

// Events 返回只读的事件通道，订阅被取消后通道关闭
func (s *FeedSubscription) Events() <-chan FeedEvent {
	return s.events
}

// SessionFeedService 会话推送通道的实现
// 进程内订阅者（SSE连接）直接扇出；配置了MQTT时同一事件会镜像发布到
// guardian/emergency/{id}/events 主题，供设备端和跟踪端App直接订阅
type SessionFeedService struct {
	Config *config.Config

	Client         mqtt.Client
	IsConnected    bool
	connectedMutex sync.RWMutex // 保护IsConnected字段的读写
	PublishMutex   sync.Mutex   // 用于保护MQTT消息发布

	// 以会话ID为键的订阅者集合
	mu          sync.RWMutex
	subscribers map[string]map[string]*FeedSubscription
}

// NewSessionFeedService 创建一个新的会话推送服务
// 未配置MQTT服务器地址时运行在仅进程内模式
func NewSessionFeedService(cfg *config.Config) *SessionFeedService {
	service := &SessionFeedService{
		Config:      cfg,
		subscribers: make(map[string]map[string]*FeedSubscription),
	}

	if cfg.MQTTBrokerURL != "" {
		service.setupMQTTClient()
	}

	return service
}

// setupMQTTClient 设置MQTT客户端
func (s *SessionFeedService) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s-%d", s.Config.MQTTClientID, uuid.New().String()[:8], time.Now().UnixNano()))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)

	// 添加用户名和密码
	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	// 添加TLS配置，支持SSL连接
	if strings.HasPrefix(s.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(s.Config.MQTTBrokerURL, "tls://") || s.Config.MQTTSSLEnabled {
		log.Println("[FEED] 使用TLS连接MQTT")
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true, // 如有CA证书则使用证书验证
		}
		if s.Config.MQTTCACertPath != "" {
			if caCert, err := os.ReadFile(s.Config.MQTTCACertPath); err != nil {
				log.Printf("[FEED] 读取CA证书失败: %v，跳过证书验证", err)
			} else {
				pool := x509.NewCertPool()
				if pool.AppendCertsFromPEM(caCert) {
					tlsConfig.RootCAs = pool
					tlsConfig.InsecureSkipVerify = false
				} else {
					log.Println("[FEED] CA证书解析失败，跳过证书验证")
				}
			}
		}
		opts.SetTLSConfig(tlsConfig)
	}

	// 设置连接丢失回调
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[FEED] MQTT连接丢失: %v", err)
		s.connectedMutex.Lock()
		s.IsConnected = false
		s.connectedMutex.Unlock()
	})

	// 设置连接建立回调
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("[FEED] 成功连接到", s.Config.MQTTBrokerURL)
		s.connectedMutex.Lock()
		s.IsConnected = true
		s.connectedMutex.Unlock()
	})

	// 设置重连回调
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Println("[FEED] 正在尝试重连MQTT...")
	})

	// 创建客户端
	s.Client = mqtt.NewClient(opts)
}

// Connect 连接到MQTT服务器，带有重试机制；仅进程内模式下是空操作
func (s *SessionFeedService) Connect() error {
	if s.Client == nil {
		log.Println("[FEED] 未配置MQTT服务器，运行在仅进程内推送模式")
		return nil
	}

	// 加锁，确保同一时间只有一个连接尝试
	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()

	if isConnected {
		return nil
	}

	// 添加最大重试次数和指数退避策略
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		token := s.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			s.connectedMutex.Lock()
			s.IsConnected = true
			s.connectedMutex.Unlock()
			log.Printf("[FEED] 成功连接到 %s", s.Config.MQTTBrokerURL)
			return nil
		}

		err = token.Error()
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 指数退避: 1s, 2s, 4s, 8s, 16s
		log.Printf("[FEED] MQTT连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[FEED] MQTT连接失败，已尝试 %d 次: %v", maxRetries, err)
}

// Disconnect 断开与MQTT服务器的连接
func (s *SessionFeedService) Disconnect() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
}

// Subscribe 订阅一个会话主题，返回订阅句柄
// 订阅不回放历史事件，只投递订阅之后发布的事件
func (s *SessionFeedService) Subscribe(emergencyID string) *FeedSubscription {
	sub := &FeedSubscription{
		ID:          uuid.New().String(),
		EmergencyID: emergencyID,
		events:      make(chan FeedEvent, feedSubscriptionBuffer),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[emergencyID] == nil {
		s.subscribers[emergencyID] = make(map[string]*FeedSubscription)
	}
	s.subscribers[emergencyID][sub.ID] = sub

	log.Printf("[FEED] 新订阅: emergency=%s, sub=%s, 当前订阅数=%d",
		emergencyID, sub.ID, len(s.subscribers[emergencyID]))
	return sub
}

// Unsubscribe 取消订阅并清理订阅者记录，防止订阅列表无限增长
func (s *SessionFeedService) Unsubscribe(sub *FeedSubscription) {
	if sub == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	if subs, ok := s.subscribers[sub.EmergencyID]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(s.subscribers, sub.EmergencyID)
		}
	}
	close(sub.events)

	log.Printf("[FEED] 取消订阅: emergency=%s, sub=%s", sub.EmergencyID, sub.ID)
}

// Publish 向某个会话主题的所有当前订阅者投递事件
// 缓冲区已满的慢订阅者会被跳过，绝不阻塞发布方
func (s *SessionFeedService) Publish(emergencyID string, event FeedEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	event.EmergencyID = emergencyID

	// 进程内扇出
	s.mu.RLock()
	for _, sub := range s.subscribers[emergencyID] {
		select {
		case sub.events <- event:
		default:
			log.Printf("[FEED] 订阅者缓冲区已满，丢弃事件: emergency=%s, sub=%s, type=%s",
				emergencyID, sub.ID, event.Type)
		}
	}
	s.mu.RUnlock()

	// 镜像发布到MQTT，供进程外的设备和跟踪端订阅
	if s.Client != nil {
		topic := fmt.Sprintf("guardian/emergency/%s/events", emergencyID)
		if err := s.publishMessage(topic, event); err != nil {
			return err
		}
	}

	return nil
}

// SubscriberCount 返回某个会话当前的进程内订阅者数量
func (s *SessionFeedService) SubscriberCount(emergencyID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[emergencyID])
}

// publishMessage 发布消息到指定MQTT主题
func (s *SessionFeedService) publishMessage(topic string, payload interface{}) error {
	// 加锁保护发布过程，避免并发发布冲突
	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	// 检查连接状态
	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()

	if !isConnected {
		return fmt.Errorf("MQTT客户端未连接")
	}

	// 序列化消息
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	// 实时位置属于可丢弃数据，非持久消息
	qos := byte(s.Config.MQTTQoS)
	retained := false

	// 创建发布令牌并等待完成，设置超时时间避免无限等待
	token := s.Client.Publish(topic, qos, retained, jsonData)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时")
	}

	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %v", token.Error())
	}

	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"
)

// 单个联系人的通知超时上限，超时按失败处理，不重试
const notifyTimeout = 5 * time.Second

// InterfaceSMSGateway 定义对外短信网关接口
type InterfaceSMSGateway interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}

// InterfaceNotificationService 定义联系人通知服务接口
// 通知是尽力而为的：单个联系人发送失败不影响其他联系人，
// 也绝不导致触发方的操作失败
type InterfaceNotificationService interface {
	NotifyContacts(contacts []models.EmergencyContact, body string)
}

// NotificationService 联系人通知服务的实现，自身无状态
type NotificationService struct {
	Gateway InterfaceSMSGateway
}

// NewNotificationService 创建一个新的通知服务
func NewNotificationService(gateway InterfaceSMSGateway) *NotificationService {
	return &NotificationService{Gateway: gateway}
}

// NotifyContacts 并发地向每个联系人发送一条短信后立即返回
// 每个发送相互独立，结果只用于日志，调用方不等待完成
func (s *NotificationService) NotifyContacts(contacts []models.EmergencyContact, body string) {
	for _, contact := range contacts {
		contact := contact
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()

			messageID, err := s.Gateway.SendMessage(ctx, contact.Phone, body)
			if err != nil {
				log.Printf("[SMS] 向联系人 %s(%s) 发送通知失败: %v", contact.Name, contact.Phone, err)
				return
			}
			log.Printf("[SMS] 已通知联系人 %s(%s), messageID=%s", contact.Name, contact.Phone, messageID)
		}()
	}
}

// HTTPSMSGateway 通过Twilio兼容的HTTP接口发送短信
type HTTPSMSGateway struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	HTTPClient *http.Client
}

// NewHTTPSMSGateway 创建一个新的HTTP短信网关
func NewHTTPSMSGateway(cfg *config.Config) *HTTPSMSGateway {
	return &HTTPSMSGateway{
		BaseURL:    cfg.SMSAPIBaseURL,
		AccountSID: cfg.SMSAccountSID,
		AuthToken:  cfg.SMSAuthToken,
		From:       cfg.SMSFromNumber,
		HTTPClient: &http.Client{Timeout: notifyTimeout},
	}
}

// SendMessage 发送一条短信，返回网关侧的消息ID
func (g *HTTPSMSGateway) SendMessage(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", g.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", g.BaseURL, g.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.AccountSID, g.AuthToken)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("短信网关返回 %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析网关响应失败: %v", err)
	}

	return result.Sid, nil
}

// LogSMSGateway 日志模拟网关，未配置真实网关凭证时使用
type LogSMSGateway struct{}

// NewLogSMSGateway 创建一个日志模拟网关
func NewLogSMSGateway() *LogSMSGateway {
	return &LogSMSGateway{}
}

// SendMessage 只打印日志，始终成功
func (g *LogSMSGateway) SendMessage(_ context.Context, to, body string) (string, error) {
	log.Printf("[SMS NOTIFICATION] To: %s | Message: %s", to, body)
	return fmt.Sprintf("mock-%d", time.Now().UnixMilli()), nil
}

package services

import "strings"

// InterfaceChatbotService 定义安全助手对话服务接口
type InterfaceChatbotService interface {
	Reply(message string) string
}

// ChatbotService 基于关键词的安全助手
// 只做关键词匹配，不保存会话上下文
type ChatbotService struct {
	rules []chatbotRule
}

type chatbotRule struct {
	keywords []string
	reply    string
}

// NewChatbotService 创建一个新的安全助手服务
func NewChatbotService() *ChatbotService {
	return &ChatbotService{
		rules: []chatbotRule{
			{
				keywords: []string{"emergency", "help", "danger", "sos"},
				reply:    "If you are in immediate danger, trigger the SOS button now. Your emergency contacts will be notified with your live location.",
			},
			{
				keywords: []string{"follow", "followed", "stalking", "stalker"},
				reply:    "Stay in well-lit public areas and head towards the nearest safe place. Use the safe places feature to find police stations nearby, and consider triggering an SOS.",
			},
			{
				keywords: []string{"unsafe", "scared", "afraid", "alone"},
				reply:    "Share your live location with a trusted contact and keep your phone charged. If the feeling persists, move to a public area and call someone you trust.",
			},
			{
				keywords: []string{"police", "station"},
				reply:    "You can find the nearest police station in the safe places screen. In India dial 100, or 112 for the unified emergency helpline.",
			},
			{
				keywords: []string{"hospital", "injured", "hurt", "medical"},
				reply:    "For medical emergencies dial 108 for an ambulance. The safe places screen lists hospitals near your current location.",
			},
			{
				keywords: []string{"cancel", "safe now", "false alarm"},
				reply:    "If you triggered an SOS by mistake or are safe now, cancel the alert from the emergency screen. Your contacts will be informed that you are safe.",
			},
			{
				keywords: []string{"record", "recording", "audio"},
				reply:    "During an emergency the app can record audio and attach it to your alert as evidence. Recordings are stored securely in your account.",
			},
		},
	}
}

// Reply 根据消息中的关键词返回建议
func (s *ChatbotService) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range s.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.reply
			}
		}
	}
	return "I'm your safety assistant. You can ask me about staying safe, finding safe places nearby, or how the SOS alert works."
}

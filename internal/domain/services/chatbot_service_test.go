package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatbotKeywordMatching(t *testing.T) {
	service := NewChatbotService()

	reply := service.Reply("I think someone is FOLLOWING me")
	assert.Contains(t, reply, "safe place")

	reply = service.Reply("where is the nearest police station")
	assert.Contains(t, reply, "police")

	reply = service.Reply("I'm hurt and need a hospital")
	assert.Contains(t, reply, "108")
}

func TestChatbotFallbackReply(t *testing.T) {
	service := NewChatbotService()

	reply := service.Reply("what's the weather like")
	assert.Contains(t, reply, "safety assistant")
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/config"
)

// 单次情绪分析的超时上限
const emotionAnalyzeTimeout = 10 * time.Second

// EmotionResult 音频情绪分析结果
type EmotionResult struct {
	Emotion string `json:"emotion"`
}

// InterfaceEmotionAnalyzer 定义音频情绪分析器接口
// 分析是尽力而为的：失败只影响本次结果，不影响录音本身
type InterfaceEmotionAnalyzer interface {
	Analyze(ctx context.Context, filename, contentType string, data []byte) (*EmotionResult, error)
}

// HTTPEmotionAnalyzer 通过HTTP调用外部分析服务
type HTTPEmotionAnalyzer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPEmotionAnalyzer 创建一个新的HTTP情绪分析器
func NewHTTPEmotionAnalyzer(cfg *config.Config) *HTTPEmotionAnalyzer {
	return &HTTPEmotionAnalyzer{
		BaseURL:    cfg.EmotionAPIBaseURL,
		HTTPClient: &http.Client{Timeout: emotionAnalyzeTimeout},
	}
}

// Analyze 上传音频到分析服务并返回情绪标签
func (a *HTTPEmotionAnalyzer) Analyze(ctx context.Context, filename, contentType string, data []byte) (*EmotionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("情绪分析服务返回 %d: %s", resp.StatusCode, string(respBody))
	}

	var result EmotionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("解析分析结果失败: %v", err)
	}
	if result.Emotion == "" {
		return nil, fmt.Errorf("分析结果缺少emotion字段")
	}

	return &result, nil
}

// LogEmotionAnalyzer 日志模拟分析器，未配置分析服务地址时使用
type LogEmotionAnalyzer struct{}

// NewLogEmotionAnalyzer 创建一个日志模拟分析器
func NewLogEmotionAnalyzer() *LogEmotionAnalyzer {
	return &LogEmotionAnalyzer{}
}

// Analyze 只打印日志，始终返回neutral
func (a *LogEmotionAnalyzer) Analyze(_ context.Context, filename, _ string, data []byte) (*EmotionResult, error) {
	log.Printf("[EMOTION] 模拟分析: file=%s, size=%d", filename, len(data))
	return &EmotionResult{Emotion: "neutral"}, nil
}

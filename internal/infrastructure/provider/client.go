package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// Client OpenAI 兼容 API 客户端
// 同一套凭证承载 chat、vision 和 embedding 三类请求
type Client struct {
	baseURL        string
	apiKey         string
	chatModel      string
	visionModel    string
	embeddingModel string
	temperature    float64
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient 创建 API 客户端
func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.Provider.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		apiKey:         cfg.Provider.APIKey,
		chatModel:      cfg.Provider.ChatModel,
		visionModel:    cfg.Provider.VisionModel,
		embeddingModel: cfg.Provider.EmbeddingModel,
		temperature:    cfg.Provider.Temperature,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: log.NewModuleLogger("provider", "client"),
	}
}

// postJSON 发送 JSON 请求并解析响应
func (c *Client) postJSON(ctx context.Context, path string, reqBody any, respBody any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// maskAPIKey API Key 脱敏，用于日志输出
func maskAPIKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "***"
}

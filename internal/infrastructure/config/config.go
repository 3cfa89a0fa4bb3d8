package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// 时长配置允许的边界（秒）
// 越界值会被钳制到最近的边界并记录告警，不会报错
const (
	MinSegmentSeconds = 1
	MaxSegmentSeconds = 60
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Chat     ChatConfig     `yaml:"chat"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"`
	// AdminToken 重新触发处理等特权操作的令牌
	AdminToken string `yaml:"admin_token"`
}

// DatabaseConfig 存储配置
// URL 非空且可连接时使用 pgvector 原生向量检索，否则退回 sqlite 暴力检索
type DatabaseConfig struct {
	// URL PostgreSQL 连接串（需安装 pgvector 扩展）
	URL string `yaml:"url"`
	// Path sqlite 兜底数据库路径，空表示 ~/.peertube-aichat/aichat.db
	Path string `yaml:"path"`
}

// ProviderConfig AI 服务商配置（OpenAI 兼容接口）
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	ChatModel      string `yaml:"chat_model"`
	VisionModel    string `yaml:"vision_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	// EmbeddingDim 向量维度，必须与模型输出一致
	EmbeddingDim int     `yaml:"embedding_dim"`
	Temperature  float64 `yaml:"temperature"`
}

// IngestConfig 摄取流水线配置
type IngestConfig struct {
	// CaptionChunkSeconds 字幕切分的目标时长（秒），钳制到 [1, 60]
	CaptionChunkSeconds float64 `yaml:"caption_chunk_seconds"`
	// FrameIntervalSeconds 抽帧间隔（秒），钳制到 [1, 60]
	FrameIntervalSeconds float64 `yaml:"frame_interval_seconds"`
	// MaxFrames 每个视频最多抽取的帧数
	MaxFrames int `yaml:"max_frames"`
	// FFmpegPath ffmpeg 可执行文件路径
	FFmpegPath string `yaml:"ffmpeg_path"`
	// FrameDir 帧图片落盘目录，空表示系统临时目录
	FrameDir string `yaml:"frame_dir"`
	// PeerTubeURL 视频目录服务地址
	PeerTubeURL string `yaml:"peertube_url"`
	// PeerTubeToken 目录服务访问令牌（可选）
	PeerTubeToken string `yaml:"peertube_token"`
}

// ChatConfig 问答配置
type ChatConfig struct {
	// TokenBudget 提示词 token 预算
	TokenBudget int `yaml:"token_budget"`
	// TopK 检索的片段数量
	TopK int `yaml:"top_k"`
	// MaxFrames 上下文中携带的帧描述上限
	MaxFrames int `yaml:"max_frames"`
	// MaxRelated 上下文中携带的相关视频上限
	MaxRelated int `yaml:"max_related"`
	// HistoryLimit 携带的历史问答条数
	HistoryLimit int `yaml:"history_limit"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":9563",
		},
		Database: DatabaseConfig{},
		Provider: ProviderConfig{
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o-mini",
			VisionModel:    "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			EmbeddingDim:   1536,
			Temperature:    0.7,
		},
		Ingest: IngestConfig{
			CaptionChunkSeconds:  30,
			FrameIntervalSeconds: 5,
			MaxFrames:            20,
			FFmpegPath:           "ffmpeg",
			PeerTubeURL:          "http://localhost:9000",
		},
		Chat: ChatConfig{
			TokenBudget:  4000,
			TopK:         5,
			MaxFrames:    10,
			MaxRelated:   10,
			HistoryLimit: 20,
		},
	}
}

// Load 从配置文件加载配置，文件不存在时返回默认值
// 路径可用 AICHAT_CONFIG 环境变量覆盖，默认 ~/.peertube-aichat/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	configPath := os.Getenv("AICHAT_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		configPath = filepath.Join(homeDir, ".peertube-aichat", "config.yaml")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Normalize(applog.NewModuleLogger("config", "loader"))
	return cfg, nil
}

// Normalize 钳制越界配置并填补缺失默认值
func (c *Config) Normalize(logger *slog.Logger) {
	c.Ingest.CaptionChunkSeconds = clampSeconds(logger, "caption_chunk_seconds", c.Ingest.CaptionChunkSeconds, 30)
	c.Ingest.FrameIntervalSeconds = clampSeconds(logger, "frame_interval_seconds", c.Ingest.FrameIntervalSeconds, 5)

	if c.Ingest.MaxFrames <= 0 {
		c.Ingest.MaxFrames = 20
	}
	if c.Chat.TokenBudget <= 0 {
		c.Chat.TokenBudget = 4000
	}
	if c.Chat.TopK <= 0 {
		c.Chat.TopK = 5
	}
	if c.Chat.MaxFrames <= 0 {
		c.Chat.MaxFrames = 10
	}
	if c.Chat.MaxRelated <= 0 {
		c.Chat.MaxRelated = 10
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 20
	}
}

// clampSeconds 将时长钳制到 [MinSegmentSeconds, MaxSegmentSeconds]
func clampSeconds(logger *slog.Logger, name string, value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	if value < MinSegmentSeconds {
		if logger != nil {
			logger.Warn("duration below minimum, clamping",
				"setting", name,
				"value", value,
				"clamped", MinSegmentSeconds,
			)
		}
		return MinSegmentSeconds
	}
	if value > MaxSegmentSeconds {
		if logger != nil {
			logger.Warn("duration above maximum, clamping",
				"setting", name,
				"value", value,
				"clamped", MaxSegmentSeconds,
			)
		}
		return MaxSegmentSeconds
	}
	return value
}

// SQLitePath 返回 sqlite 兜底数据库路径
func (c *Config) SQLitePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".peertube-aichat", "aichat.db"), nil
}

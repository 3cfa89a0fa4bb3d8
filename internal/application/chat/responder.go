package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// ErrNotProcessed 视频尚未完成摄取
// 调用方据此返回"未处理"状态而不是一个故障
var ErrNotProcessed = errors.New("video has not been processed yet")

// Answer 问答结果
type Answer struct {
	Reply      string `json:"reply"`
	Timestamps []int  `json:"timestamps"`
}

// Responder 问答服务
// 组装上下文、调用对话模型、提取回复中的时间点并落库
type Responder struct {
	assembler *Assembler
	llm       LLM
	store     knowledge.Store
	cfg       *config.Config
	logger    *slog.Logger
}

// NewResponder 创建问答服务
func NewResponder(
	assembler *Assembler,
	llm LLM,
	store knowledge.Store,
	cfg *config.Config,
) *Responder {
	return &Responder{
		assembler: assembler,
		llm:       llm,
		store:     store,
		cfg:       cfg,
		logger:    log.NewModuleLogger("chat", "responder"),
	}
}

// Ask 回答关于某个视频的提问
// 模型调用失败时错误上抛，不静默返回空答案
func (r *Responder) Ask(ctx context.Context, videoID int64, userID, message string) (*Answer, error) {
	record, err := r.store.GetProcessing(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to read processing record: %w", err)
	}
	if record == nil || !record.IsCompleted() {
		return nil, ErrNotProcessed
	}

	assembled := r.assembler.Assemble(ctx, videoID, message, userID)

	counter, err := GetTokenCounter()
	if err != nil {
		// 计数器不可用时不做预算裁剪，交给模型侧截断
		r.logger.Warn("token 计数器初始化失败，跳过预算裁剪", "error", err)
		counter = nil
	}
	prompt := fitToBudget(assembled, message, r.cfg.Chat.TokenBudget, counter)

	reply, tokensUsed, err := r.llm.Chat(ctx, systemPrompt, prompt, r.cfg.Chat.TokenBudget)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	timestamps := ExtractTimestamps(reply)

	now := time.Now()
	if err := r.store.SaveExchange(ctx, &knowledge.ChatExchange{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		UserID:    userID,
		Message:   message,
		Response:  reply,
		CreatedAt: now,
	}); err != nil {
		r.logger.Warn("问答记录写入失败", "video_id", videoID, "error", err)
	}

	if tokensUsed > 0 {
		if err := r.store.SaveUsage(ctx, &knowledge.UsageRecord{
			ID:         uuid.New().String(),
			UserID:     userID,
			Endpoint:   "chat",
			TokensUsed: tokensUsed,
			CreatedAt:  now,
		}); err != nil {
			r.logger.Warn("用量记录写入失败", "video_id", videoID, "error", err)
		}
	}

	r.logger.Info("问答完成",
		"video_id", videoID,
		"tokens", tokensUsed,
		"timestamps", len(timestamps),
	)

	return &Answer{Reply: reply, Timestamps: timestamps}, nil
}

// History 返回视频的历史问答，新的在前
func (r *Responder) History(ctx context.Context, videoID int64, userID string) ([]*knowledge.ChatExchange, error) {
	return r.store.RecentExchanges(ctx, videoID, userID, r.cfg.Chat.HistoryLimit)
}

package chat

import (
	"context"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/catalog"
	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// Embedder 查询向量化协作方
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM 对话模型协作方
type LLM interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, int, error)
}

// Context 组装好的问答上下文
// 各部分允许为空，缺失的部分在 prompt 中省略
type Context struct {
	Video   *catalog.VideoAsset
	Chunks  []*knowledge.ScoredChunk
	Frames  []*knowledge.FrameDescription
	Related []*catalog.RelatedVideo
	History []*knowledge.ChatExchange // 时间正序
}

// Assembler 上下文组装器
// 每个子步骤失败时降级为空集而不是中断组装，带着部分上下文也要作答
type Assembler struct {
	store    knowledge.Store
	catalog  catalog.Provider
	embedder Embedder
	cfg      *config.Config
	logger   *slog.Logger
}

// NewAssembler 创建上下文组装器
func NewAssembler(
	store knowledge.Store,
	catalogProvider catalog.Provider,
	embedder Embedder,
	cfg *config.Config,
) *Assembler {
	return &Assembler{
		store:    store,
		catalog:  catalogProvider,
		embedder: embedder,
		cfg:      cfg,
		logger:   log.NewModuleLogger("chat", "assembler"),
	}
}

// Assemble 组装问答上下文
// 依次取视频元数据、相似片段、时间窗内的帧描述、相关视频和历史问答
func (a *Assembler) Assemble(ctx context.Context, videoID int64, query, userID string) *Context {
	result := &Context{}

	video, err := a.catalog.GetVideo(ctx, videoID)
	if err != nil {
		a.logger.Warn("获取视频元数据失败，上下文不含元数据", "video_id", videoID, "error", err)
	} else {
		result.Video = video
	}

	result.Chunks = a.searchChunks(ctx, videoID, query)
	result.Frames = a.framesForChunks(ctx, videoID, result.Chunks)

	related, err := a.catalog.ListRelated(ctx, videoID, a.cfg.Chat.MaxRelated)
	if err != nil {
		a.logger.Warn("获取相关视频失败", "video_id", videoID, "error", err)
	} else {
		result.Related = related
	}

	result.History = a.recentHistory(ctx, videoID, userID)
	return result
}

// searchChunks 查询向量化后检索 top-K 相似片段
func (a *Assembler) searchChunks(ctx context.Context, videoID int64, query string) []*knowledge.ScoredChunk {
	vectors, err := a.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		a.logger.Warn("查询向量化失败，跳过片段检索", "video_id", videoID, "error", err)
		return nil
	}

	chunks, err := a.store.SimilaritySearch(ctx, videoID, vectors[0], a.cfg.Chat.TopK)
	if err != nil {
		a.logger.Warn("片段检索失败", "video_id", videoID, "error", err)
		return nil
	}
	return chunks
}

// framesForChunks 取片段时间窗 [minStart, maxEnd] 内的帧描述
func (a *Assembler) framesForChunks(ctx context.Context, videoID int64, chunks []*knowledge.ScoredChunk) []*knowledge.FrameDescription {
	if len(chunks) == 0 {
		return nil
	}

	minStart := chunks[0].StartTime
	maxEnd := chunks[0].EndTime
	for _, chunk := range chunks[1:] {
		if chunk.StartTime < minStart {
			minStart = chunk.StartTime
		}
		if chunk.EndTime > maxEnd {
			maxEnd = chunk.EndTime
		}
	}

	frames, err := a.store.FramesInRange(ctx, videoID, minStart, maxEnd, a.cfg.Chat.MaxFrames)
	if err != nil {
		a.logger.Warn("帧描述查询失败", "video_id", videoID, "error", err)
		return nil
	}
	return frames
}

// recentHistory 取最近的历史问答并倒置为时间正序
func (a *Assembler) recentHistory(ctx context.Context, videoID int64, userID string) []*knowledge.ChatExchange {
	exchanges, err := a.store.RecentExchanges(ctx, videoID, userID, a.cfg.Chat.HistoryLimit)
	if err != nil {
		a.logger.Warn("历史问答查询失败", "video_id", videoID, "error", err)
		return nil
	}

	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges
}

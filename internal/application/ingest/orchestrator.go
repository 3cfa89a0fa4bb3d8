package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/catalog"
	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/scheduler"
)

// Embedder 文本向量化协作方
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Describer 帧画面描述协作方
type Describer interface {
	DescribeImage(ctx context.Context, imagePath string) (string, error)
}

// FrameExtractor 抽帧协作方
// 返回时间点到图片路径的映射，个别时间点失败时缺席
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoID int64, playbackURL string, timestamps []float64) (map[float64]string, error)
}

// 就绪检查退避时间表，用尽后转入终态 error
var readinessBackoff = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
	600 * time.Second,
}

// 字幕轮询参数：字幕生成可能滞后于转码
const (
	captionRetryDelay = 60 * time.Second
	captionMaxRetries = 5
)

// Orchestrator 摄取编排器
// 每个视频一条 pending → processing → {completed|error} 状态机，
// 状态记录的 status 字段即互斥信号：processing 期间的重复入队被合并
type Orchestrator struct {
	store     knowledge.Store
	catalog   catalog.Provider
	embedder  Embedder
	describer Describer
	extractor FrameExtractor
	sched     scheduler.TaskScheduler
	cfg       *config.Config
	logger    *slog.Logger

	// 保护状态读写的 check-and-set 窗口
	mu sync.Mutex
}

// NewOrchestrator 创建摄取编排器
func NewOrchestrator(
	store knowledge.Store,
	catalogProvider catalog.Provider,
	embedder Embedder,
	describer Describer,
	extractor FrameExtractor,
	sched scheduler.TaskScheduler,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		catalog:   catalogProvider,
		embedder:  embedder,
		describer: describer,
		extractor: extractor,
		sched:     sched,
		cfg:       cfg,
		logger:    log.NewModuleLogger("ingest", "orchestrator"),
	}
}

// Trigger 将视频加入摄取流水线
// 已在 pending/processing 的视频合并为空操作；completed 和 error
// 状态允许重新触发，依赖存储层 upsert 语义保证幂等
func (o *Orchestrator) Trigger(ctx context.Context, videoID int64) error {
	o.mu.Lock()
	record, err := o.store.GetProcessing(ctx, videoID)
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to read processing record: %w", err)
	}

	if record != nil && !record.CanRetrigger() {
		o.mu.Unlock()
		o.logger.Info("视频已在流水线中，合并本次触发",
			"video_id", videoID,
			"status", record.Status,
		)
		return nil
	}

	now := time.Now()
	if err := o.store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
		VideoID:   videoID,
		Status:    knowledge.StatusPending,
		CreatedAt: now,
	}); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to save processing record: %w", err)
	}
	o.mu.Unlock()

	o.logger.Info("视频入队", "video_id", videoID)
	// 入队即返回，首次就绪检查和后续流水线都由调度器驱动，
	// 不在调用方（HTTP 处理器）的执行路径上跑抽帧和向量化
	o.sched.Schedule(0, func() {
		o.checkReadiness(videoID, 0)
	})
	return nil
}

// checkReadiness 检查视频是否已完成转码
// 未就绪时按退避时间表重试，用尽后转入 error；每次执行前重读状态，
// 迟到的重试任务在状态已推进后自然失效
func (o *Orchestrator) checkReadiness(videoID int64, attempt int) {
	ctx := context.Background()

	record, err := o.store.GetProcessing(ctx, videoID)
	if err != nil || record == nil || record.Status != knowledge.StatusPending {
		return
	}

	asset, err := o.catalog.GetVideo(ctx, videoID)
	if err == nil && asset.IsReady() {
		o.runPipeline(ctx, videoID, asset)
		return
	}

	if attempt >= len(readinessBackoff) {
		reason := "视频转码未在重试窗口内完成"
		if err != nil {
			reason = fmt.Sprintf("获取视频元数据失败: %v", err)
		}
		o.markError(ctx, videoID, reason)
		return
	}

	delay := readinessBackoff[attempt]
	o.logger.Info("视频尚未就绪，安排重试",
		"video_id", videoID,
		"attempt", attempt+1,
		"delay", delay,
	)
	o.sched.Schedule(delay, func() {
		o.checkReadiness(videoID, attempt+1)
	})
}

// runPipeline 运行摄取流水线
// 先抽帧出画面描述，再进入字幕阶段；抽帧阶段的产物在后续失败时
// 保留不回滚，重新触发可以跳过已完成的部分
func (o *Orchestrator) runPipeline(ctx context.Context, videoID int64, asset *catalog.VideoAsset) {
	if err := o.store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
		VideoID:   videoID,
		Status:    knowledge.StatusProcessing,
		CreatedAt: time.Now(),
	}); err != nil {
		o.logger.Error("状态写入失败", "video_id", videoID, "error", err)
		return
	}

	o.logger.Info("开始处理视频",
		"video_id", videoID,
		"duration", asset.Duration,
		"captions", len(asset.Captions),
	)

	if err := o.processFrames(ctx, videoID, asset); err != nil {
		o.markError(ctx, videoID, fmt.Sprintf("帧处理失败: %v", err))
		return
	}

	o.processCaptions(videoID, 0)
}

// processFrames 抽帧并生成画面描述
// 单帧描述失败只记录日志，描述留空待后补；帧记录写入失败则终止
func (o *Orchestrator) processFrames(ctx context.Context, videoID int64, asset *catalog.VideoAsset) error {
	timestamps := frameTimestamps(asset.Duration,
		o.cfg.Ingest.FrameIntervalSeconds, o.cfg.Ingest.MaxFrames)
	if len(timestamps) == 0 {
		return nil
	}

	extracted, err := o.extractor.ExtractFrames(ctx, videoID, asset.PlaybackURL, timestamps)
	if err != nil {
		return fmt.Errorf("frame extraction failed: %w", err)
	}

	for _, ts := range timestamps {
		imagePath, ok := extracted[ts]
		if !ok {
			continue
		}

		description, err := o.describer.DescribeImage(ctx, imagePath)
		if err != nil {
			o.logger.Warn("画面描述失败，描述留空",
				"video_id", videoID,
				"timestamp", ts,
				"error", err,
			)
			description = ""
		}

		if err := o.store.UpsertFrame(ctx, &knowledge.FrameDescription{
			VideoID:     videoID,
			Timestamp:   ts,
			ImagePath:   imagePath,
			Description: description,
		}); err != nil {
			return fmt.Errorf("failed to save frame: %w", err)
		}
	}
	return nil
}

// processCaptions 字幕获取、切分与向量化
// 字幕轨尚未生成时按固定延迟轮询，用尽后转入 error；
// 每次轮询重新拉取元数据，chunk 写入走 upsert 不会产生重复行
func (o *Orchestrator) processCaptions(videoID int64, attempt int) {
	ctx := context.Background()

	record, err := o.store.GetProcessing(ctx, videoID)
	if err != nil || record == nil || record.Status != knowledge.StatusProcessing {
		return
	}

	asset, err := o.catalog.GetVideo(ctx, videoID)
	if err != nil {
		o.markError(ctx, videoID, fmt.Sprintf("获取视频元数据失败: %v", err))
		return
	}

	if len(asset.Captions) == 0 {
		if attempt >= captionMaxRetries {
			o.markError(ctx, videoID, "字幕生成未在重试窗口内完成")
			return
		}
		o.logger.Info("字幕尚未生成，安排轮询",
			"video_id", videoID,
			"attempt", attempt+1,
		)
		o.sched.Schedule(captionRetryDelay, func() {
			o.processCaptions(videoID, attempt+1)
		})
		return
	}

	content, err := o.catalog.DownloadCaption(ctx, asset.Captions[0].URL)
	if err != nil {
		o.markError(ctx, videoID, fmt.Sprintf("字幕下载失败: %v", err))
		return
	}

	chunks := SegmentCaptions(videoID, content, o.cfg.Ingest.CaptionChunkSeconds)
	if len(chunks) == 0 {
		// 空字幕按"无可用文稿"处理，不是错误
		o.logger.Warn("字幕内容为空，跳过向量化", "video_id", videoID)
		o.markCompleted(ctx, videoID)
		return
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := o.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		o.markError(ctx, videoID, fmt.Sprintf("向量化失败: %v", err))
		return
	}
	for i := range chunks {
		if i < len(vectors) {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := o.store.UpsertChunks(ctx, chunks); err != nil {
		o.markError(ctx, videoID, fmt.Sprintf("片段写入失败: %v", err))
		return
	}

	o.logger.Info("视频摄取完成",
		"video_id", videoID,
		"chunks", len(chunks),
	)
	o.markCompleted(ctx, videoID)
}

// markCompleted 转入 completed 并盖上处理完成时间戳
func (o *Orchestrator) markCompleted(ctx context.Context, videoID int64) {
	now := time.Now()
	if err := o.store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
		VideoID:     videoID,
		Status:      knowledge.StatusCompleted,
		CreatedAt:   now,
		ProcessedAt: &now,
	}); err != nil {
		o.logger.Error("状态写入失败", "video_id", videoID, "error", err)
	}
}

// markError 转入终态 error 并记录原因
func (o *Orchestrator) markError(ctx context.Context, videoID int64, reason string) {
	o.logger.Error("视频摄取失败", "video_id", videoID, "reason", reason)
	if err := o.store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
		VideoID:      videoID,
		Status:       knowledge.StatusError,
		ErrorMessage: reason,
		CreatedAt:    time.Now(),
	}); err != nil {
		o.logger.Error("状态写入失败", "video_id", videoID, "error", err)
	}
}

// DeleteVideo 删除视频的全部衍生数据
func (o *Orchestrator) DeleteVideo(ctx context.Context, videoID int64) error {
	return o.store.DeleteVideo(ctx, videoID)
}

// frameTimestamps 按固定间隔生成抽帧时间点，受上限约束
func frameTimestamps(duration, intervalSeconds float64, maxFrames int) []float64 {
	if duration <= 0 || intervalSeconds <= 0 || maxFrames <= 0 {
		return nil
	}

	var timestamps []float64
	for ts := intervalSeconds; ts < duration && len(timestamps) < maxFrames; ts += intervalSeconds {
		timestamps = append(timestamps, ts)
	}
	return timestamps
}

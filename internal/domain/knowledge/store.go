package knowledge

import "context"

// Store 知识库存储接口
// 两种实现：pgvector 原生向量检索和 sqlite 暴力检索兜底，
// 启动时按配置选择其一，调用方不感知后端差异。
// 写入失败向上传播（编排器据此标记阶段失败），读取失败由调用方降级为空结果。
type Store interface {
	// UpsertChunk 按 (video_id, chunk_index) 插入或替换片段
	// 替换时保留序号，覆盖时间边界、文本和向量，重复写入不产生重复行
	UpsertChunk(ctx context.Context, chunk *TranscriptChunk) error

	// UpsertChunks 批量写入片段
	UpsertChunks(ctx context.Context, chunks []*TranscriptChunk) error

	// SimilaritySearch 返回与查询向量最相似的至多 k 个片段
	// 按相似度降序排列，得分相同时按片段序号升序；无向量的片段不参与
	SimilaritySearch(ctx context.Context, videoID int64, query []float32, k int) ([]*ScoredChunk, error)

	// UpsertFrame 按 (video_id, timestamp) 插入或替换帧描述
	UpsertFrame(ctx context.Context, frame *FrameDescription) error

	// FramesInRange 返回时间戳在 [minTime, maxTime] 闭区间内的帧描述
	// 按时间戳升序
	FramesInRange(ctx context.Context, videoID int64, minTime, maxTime float64, limit int) ([]*FrameDescription, error)

	// SaveProcessing 插入或替换视频的处理状态记录
	SaveProcessing(ctx context.Context, record *ProcessingRecord) error

	// GetProcessing 返回视频的处理状态记录，不存在时返回 (nil, nil)
	GetProcessing(ctx context.Context, videoID int64) (*ProcessingRecord, error)

	// SaveExchange 追加一条问答记录
	SaveExchange(ctx context.Context, exchange *ChatExchange) error

	// RecentExchanges 返回视频最近的至多 limit 条问答记录，新的在前
	// userID 非空时只返回该用户的记录
	RecentExchanges(ctx context.Context, videoID int64, userID string, limit int) ([]*ChatExchange, error)

	// SaveUsage 追加一条用量记录
	SaveUsage(ctx context.Context, usage *UsageRecord) error

	// UsageSummary 按端点聚合用量
	UsageSummary(ctx context.Context) ([]*UsageSummary, error)

	// DeleteVideo 删除视频的全部衍生数据（片段、帧、处理记录），幂等
	DeleteVideo(ctx context.Context, videoID int64) error

	// Close 释放底层连接
	Close() error
}

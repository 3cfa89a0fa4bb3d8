package knowledge

// TranscriptChunk 转录片段模型
// 视频字幕按固定时长切分后的文本片段，是向量检索的最小单位
type TranscriptChunk struct {
	VideoID    int64     // 视频 ID（外部目录管理）
	ChunkIndex int       // 片段在视频内的序号，从 0 开始连续递增
	StartTime  float64   // 起始时间（秒）
	EndTime    float64   // 结束时间（秒）
	Text       string    // 片段文本
	Embedding  []float32 // 向量，未计算时为 nil
}

// HasEmbedding 检查片段是否已计算向量
// 没有向量的片段不参与相似度检索
func (c *TranscriptChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// FrameDescription 视频帧描述模型
// 定时抽取的静态帧及其视觉描述，按时间戳唯一
type FrameDescription struct {
	VideoID     int64   // 视频 ID
	Timestamp   float64 // 帧时间戳（秒），同一视频内唯一
	ImagePath   string  // 帧图片引用（本地路径或对象存储 URL）
	Description string  // 视觉描述，分析失败或跳过时为空
}

// ScoredChunk 带相似度得分的检索结果
// 两种存储后端统一返回该结构，调用方不感知后端差异
type ScoredChunk struct {
	TranscriptChunk
	Score float32 // 与查询向量的余弦相似度
}

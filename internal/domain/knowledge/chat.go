package knowledge

import "time"

// ChatExchange 问答记录
// 只追加不修改，按创建时间排序
type ChatExchange struct {
	ID        string    // UUID
	VideoID   int64     // 视频 ID
	UserID    string    // 用户标识，匿名提问时为空
	Message   string    // 用户问题
	Response  string    // 模型回答
	CreatedAt time.Time // 创建时间
}

// UsageRecord Token 用量记录
// 纯观测数据，只追加
type UsageRecord struct {
	ID         string    // UUID
	UserID     string    // 用户标识，可为空
	Endpoint   string    // 调用端点（chat/embedding/vision）
	TokensUsed int       // 消耗的 token 数
	Cost       float64   // 估算费用
	CreatedAt  time.Time // 创建时间
}

// UsageSummary 按端点聚合的用量统计
type UsageSummary struct {
	Endpoint   string  `json:"endpoint"`
	Calls      int     `json:"calls"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
}

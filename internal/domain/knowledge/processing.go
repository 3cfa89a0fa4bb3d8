package knowledge

import "time"

// ProcessingRecord 视频处理状态记录
// 每个视频至多一条，是"该视频是否可问答"的唯一事实来源
type ProcessingRecord struct {
	VideoID      int64      // 视频 ID（主键）
	Status       string     // pending/processing/completed/error
	ErrorMessage string     // 终态为 error 时的原因描述
	CreatedAt    time.Time  // 记录创建时间
	ProcessedAt  *time.Time // 仅在转入 completed 时填写
}

// 处理状态常量
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// IsCompleted 检查视频是否处理完成
func (r *ProcessingRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// IsInFlight 检查是否有流水线正在运行
// processing 状态即互斥信号，此时新的入队请求应被合并为空操作
func (r *ProcessingRecord) IsInFlight() bool {
	return r.Status == StatusProcessing
}

// CanRetrigger 检查是否允许重新触发处理
// completed 重新触发用于人工重建，error 重新触发用于失败恢复
func (r *ProcessingRecord) CanRetrigger() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

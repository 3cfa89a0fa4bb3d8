package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zollege/peertube-plugin-aichat/internal/application/ingest"
	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http/response"
)

// ProcessingHandler 摄取状态处理器
type ProcessingHandler struct {
	orchestrator *ingest.Orchestrator
	store        knowledge.Store
	cfg          *config.Config
}

// NewProcessingHandler 创建摄取状态处理器
func NewProcessingHandler(
	orchestrator *ingest.Orchestrator,
	store knowledge.Store,
	cfg *config.Config,
) *ProcessingHandler {
	return &ProcessingHandler{
		orchestrator: orchestrator,
		store:        store,
		cfg:          cfg,
	}
}

// processingView 处理状态响应结构
type processingView struct {
	VideoID      int64      `json:"video_id"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// Status 查询视频的处理状态
// GET /api/v1/videos/:id/processing
func (h *ProcessingHandler) Status(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}

	record, err := h.store.GetProcessing(c.Request.Context(), videoID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to load processing status")
		return
	}
	if record == nil {
		// 没有记录是"未处理"，不是错误
		response.Success(c, gin.H{"status": "not_processed"})
		return
	}

	response.Success(c, processingView{
		VideoID:      record.VideoID,
		Status:       record.Status,
		ErrorMessage: record.ErrorMessage,
		CreatedAt:    record.CreatedAt,
		ProcessedAt:  record.ProcessedAt,
	})
}

// Trigger 触发（或重新触发）视频摄取
// POST /api/v1/videos/:id/processing
func (h *ProcessingHandler) Trigger(c *gin.Context) {
	if !h.authorized(c) {
		response.Error(c, http.StatusForbidden, 403, "admin token required")
		return
	}

	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}

	if err := h.orchestrator.Trigger(c.Request.Context(), videoID); err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to trigger processing")
		return
	}
	response.Success(c, gin.H{"status": "accepted"})
}

// Delete 删除视频的全部衍生数据
// DELETE /api/v1/videos/:id
func (h *ProcessingHandler) Delete(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}

	if err := h.orchestrator.DeleteVideo(c.Request.Context(), videoID); err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to delete video data")
		return
	}
	response.Success(c, gin.H{"status": "deleted"})
}

// authorized 校验特权操作令牌
// 未配置令牌时放行，适用于仅本机可达的部署
func (h *ProcessingHandler) authorized(c *gin.Context) bool {
	token := h.cfg.Server.AdminToken
	if token == "" {
		return true
	}

	auth := c.GetHeader("Authorization")
	return strings.TrimPrefix(auth, "Bearer ") == token
}

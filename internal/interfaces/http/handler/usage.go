package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http/response"
)

// UsageHandler 用量统计处理器
type UsageHandler struct {
	store knowledge.Store
}

// NewUsageHandler 创建用量统计处理器
func NewUsageHandler(store knowledge.Store) *UsageHandler {
	return &UsageHandler{store: store}
}

// Summary 按端点聚合的用量统计
// GET /api/v1/usage/summary
func (h *UsageHandler) Summary(c *gin.Context) {
	summaries, err := h.store.UsageSummary(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to load usage summary")
		return
	}
	response.Success(c, gin.H{"summary": summaries})
}

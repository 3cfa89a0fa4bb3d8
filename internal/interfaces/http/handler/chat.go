package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appchat "github.com/Zollege/peertube-plugin-aichat/internal/application/chat"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http/response"
)

// ChatHandler 问答处理器
type ChatHandler struct {
	responder *appchat.Responder
}

// NewChatHandler 创建问答处理器
func NewChatHandler(responder *appchat.Responder) *ChatHandler {
	return &ChatHandler{responder: responder}
}

// Ask 对视频提问
// POST /api/v1/videos/:id/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
		UserID  string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	answer, err := h.responder.Ask(c.Request.Context(), videoID, req.UserID, req.Message)
	if err != nil {
		// 未处理完成不算故障，前端据此引导用户触发处理
		if errors.Is(err, appchat.ErrNotProcessed) {
			response.Success(c, gin.H{
				"status": "not_processed",
			})
			return
		}
		response.Error(c, http.StatusBadGateway, 502, "chat failed")
		return
	}

	response.Success(c, gin.H{
		"status":     "ok",
		"reply":      answer.Reply,
		"timestamps": answer.Timestamps,
	})
}

// History 获取视频的历史问答
// GET /api/v1/videos/:id/chat/history
func (h *ChatHandler) History(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}

	exchanges, err := h.responder.History(c.Request.Context(), videoID, c.Query("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to load history")
		return
	}

	items := make([]gin.H, 0, len(exchanges))
	for _, ex := range exchanges {
		items = append(items, gin.H{
			"id":         ex.ID,
			"message":    ex.Message,
			"response":   ex.Response,
			"created_at": ex.CreatedAt,
		})
	}
	response.Success(c, gin.H{"exchanges": items})
}

// parseVideoID 解析路径中的视频 ID
func parseVideoID(c *gin.Context) (int64, bool) {
	videoID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid video id")
		return 0, false
	}
	return videoID, true
}

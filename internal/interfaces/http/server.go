package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http/handler"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器并注册路由
func NewServer(
	chatHandler *handler.ChatHandler,
	processingHandler *handler.ProcessingHandler,
	usageHandler *handler.UsageHandler,
	mcpServer *mcp.MCPServer,
	cfg *config.Config,
) *HTTPServer {
	router := gin.Default()

	logger := log.NewModuleLogger("http", "server")

	api := router.Group("/api/v1")
	{
		videos := api.Group("/videos/:id")
		{
			videos.POST("/chat", chatHandler.Ask)
			videos.GET("/chat/history", chatHandler.History)
			videos.GET("/processing", processingHandler.Status)
			videos.POST("/processing", processingHandler.Trigger)
		}
		api.DELETE("/videos/:id", processingHandler.Delete)

		api.GET("/usage/summary", usageHandler.Summary)
	}

	// 健康检查，也被单例锁的实例探测使用
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.Server.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

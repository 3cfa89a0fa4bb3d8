package wire

import (
	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/scheduler"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	store      knowledge.Store
	scheduler  *scheduler.TimerScheduler
	logger     *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	store knowledge.Store,
	sched *scheduler.TimerScheduler,
) *App {
	return &App{
		HTTPServer: httpServer,
		MCPServer:  mcpServer,
		store:      store,
		scheduler:  sched,
		logger:     applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("启动 AI 问答后端")

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("HTTP 服务器启动失败",
				"error", err,
			)
		}
	}()

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	a.logger.Info("AI 问答后端启动完成")
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("停止 AI 问答后端")

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("HTTP 服务器停止失败",
			"error", err,
		)
	}

	if a.MCPServer != nil {
		a.MCPServer.Stop()
	}

	// 停止定时任务，待执行的就绪检查会在下次触发时重建
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("知识库关闭失败",
			"error", err,
		)
	}

	a.logger.Info("AI 问答后端已停止")
	return nil
}

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/singleton"
	"github.com/Zollege/peertube-plugin-aichat/internal/wire"
)

func main() {
	// 初始化日志系统
	applog.Init(nil)

	// 加载配置获取端口
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	port := cfg.Server.HTTPPort

	// 单例锁检查：尝试获取端口锁
	listener, err := singleton.CheckAndLock(port)
	if err != nil {
		log.Fatalf("单例锁检查失败: %v", err)
	}
	if listener == nil {
		// 已有实例运行，直接退出
		log.Println("检测到已有实例在运行，当前进程退出")
		os.Exit(0)
	}
	// 关闭临时 listener，实际监听由 HTTP 服务器负责
	_ = listener.Close()

	// Wire 自动生成的初始化函数
	app, err := wire.InitializeAll()
	if err != nil {
		applog.GetLogger().Error("应用初始化失败",
			"error", err,
		)
		os.Exit(1)
	}

	// 启动所有服务
	if err := app.Start(); err != nil {
		applog.GetLogger().Error("应用启动失败",
			"error", err,
		)
		os.Exit(1)
	}

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	applog.GetLogger().Info("正在关闭应用...")
	if err := app.Stop(); err != nil {
		applog.GetLogger().Error("应用关闭时出错",
			"error", err,
		)
	}
	applog.GetLogger().Info("应用已停止")
}

package storage

import (
	"context"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/storage/postgres"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/storage/sqlite"
)

// NewStore 按配置选择存储后端
// 配置了 PostgreSQL 连接串且可连接时使用 pgvector 原生检索，
// 否则降级到 sqlite 暴力检索并记录告警，服务照常启动
func NewStore(cfg *config.Config) (knowledge.Store, error) {
	logger := applog.NewModuleLogger("storage", "provider")
	ctx := context.Background()

	if cfg.Database.URL != "" {
		store, err := postgres.NewStore(ctx, cfg.Database.URL, cfg.Provider.EmbeddingDim)
		if err == nil {
			logger.Info("使用 pgvector 向量存储")
			return store, nil
		}
		logger.Warn("PostgreSQL 不可用，降级到 sqlite 兜底存储", "error", err)
	}

	dbPath, err := cfg.SQLitePath()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Info("使用 sqlite 兜底存储", "path", dbPath)
	return sqlite.NewStore(db), nil
}

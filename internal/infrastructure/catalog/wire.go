package catalog

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/catalog"
)

// ProviderSet 目录客户端依赖注入
var ProviderSet = wire.NewSet(
	NewClient,
	wire.Bind(new(catalog.Provider), new(*Client)),
)

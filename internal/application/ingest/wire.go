package ingest

import (
	"github.com/google/wire"
)

// ProviderSet 摄取编排依赖注入
var ProviderSet = wire.NewSet(
	NewOrchestrator,
)

package handler

import (
	"github.com/google/wire"
)

// ProviderSet HTTP 处理器依赖注入
var ProviderSet = wire.NewSet(
	NewChatHandler,
	NewProcessingHandler,
	NewUsageHandler,
)

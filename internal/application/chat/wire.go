package chat

import (
	"github.com/google/wire"
)

// ProviderSet 问答服务依赖注入
var ProviderSet = wire.NewSet(
	NewAssembler,
	NewResponder,
)

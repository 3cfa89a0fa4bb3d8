package interfaces

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/http"
	"github.com/Zollege/peertube-plugin-aichat/internal/interfaces/mcp"
)

// ProviderSet Interfaces 层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
	mcp.ProviderSet,
)

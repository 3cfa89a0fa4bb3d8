package provider

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/application/chat"
	"github.com/Zollege/peertube-plugin-aichat/internal/application/ingest"
)

// ProviderSet AI 能力客户端依赖注入
var ProviderSet = wire.NewSet(
	NewClient,
	wire.Bind(new(ingest.Embedder), new(*Client)),
	wire.Bind(new(ingest.Describer), new(*Client)),
	wire.Bind(new(chat.Embedder), new(*Client)),
	wire.Bind(new(chat.LLM), new(*Client)),
)

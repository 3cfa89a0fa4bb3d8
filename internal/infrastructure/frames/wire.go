package frames

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/application/ingest"
)

// ProviderSet 抽帧器依赖注入
var ProviderSet = wire.NewSet(
	NewExtractor,
	wire.Bind(new(ingest.FrameExtractor), new(*Extractor)),
)

package application

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/application/chat"
	"github.com/Zollege/peertube-plugin-aichat/internal/application/ingest"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	ingest.ProviderSet,
	chat.ProviderSet,
)

package infrastructure

import (
	"github.com/google/wire"

	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/catalog"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/frames"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/provider"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/scheduler"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/storage"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	scheduler.ProviderSet,
	provider.ProviderSet,
	catalog.ProviderSet,
	frames.ProviderSet,
)

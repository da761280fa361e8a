package providers

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// BuildAdapters constructs one adapter per known provider section. Names are
// sorted first so the resulting slice, and every priority order derived from
// it, is identical across process starts.
func BuildAdapters(cfgs map[string]config.ProviderConfig, logger zerolog.Logger) []interfaces.ProviderAdapter {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make([]interfaces.ProviderAdapter, 0, len(names))
	for _, name := range names {
		providerCfg := cfgs[name]
		switch name {
		case "daimo":
			adapters = append(adapters, NewDaimoAdapter(providerCfg, logger))
		case "aqua":
			adapters = append(adapters, NewAquaAdapter(providerCfg, logger))
		default:
			logger.Warn().Str("provider", name).Msg("Unknown provider in configuration, skipping")
		}
	}
	return adapters
}

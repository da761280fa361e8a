package providers

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

func TestBuildAdapters(t *testing.T) {
	cfgs := map[string]config.ProviderConfig{
		"daimo":  {Name: "daimo", BaseURL: "https://pay.example", Timeout: time.Second, Enabled: true},
		"aqua":   {Name: "aqua", BaseURL: "https://aqua.example", Timeout: time.Second, Enabled: true},
		"mystic": {Name: "mystic", BaseURL: "https://mystic.example", Timeout: time.Second, Enabled: true},
	}

	t.Run("order is stable across builds", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			adapters := BuildAdapters(cfgs, zerolog.Nop())
			require.Len(t, adapters, 2)
			assert.Equal(t, "aqua", adapters[0].Name())
			assert.Equal(t, "daimo", adapters[1].Name())
		}
	})

	t.Run("unknown providers are skipped", func(t *testing.T) {
		adapters := BuildAdapters(cfgs, zerolog.Nop())
		for _, adapter := range adapters {
			assert.NotEqual(t, "mystic", adapter.Name())
		}
	})

	t.Run("empty configuration yields no adapters", func(t *testing.T) {
		assert.Empty(t, BuildAdapters(nil, zerolog.Nop()))
	})
}

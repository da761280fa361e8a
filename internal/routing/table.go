package routing

import (
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// Table is the static chain→provider routing table. It is built once at
// startup and safe for concurrent reads.
type Table struct {
	chains []config.ChainConfig
}

func NewTable(chains []config.ChainConfig) *Table {
	// Copy to keep the table immutable even if the caller mutates its slice.
	copied := make([]config.ChainConfig, len(chains))
	copy(copied, chains)
	return &Table{chains: copied}
}

// FirstEnabled returns the first enabled entry for chainID in table order.
// Duplicate entries resolve deterministically to the earliest enabled one.
func (t *Table) FirstEnabled(chainID string) (config.ChainConfig, bool) {
	for _, chain := range t.chains {
		if chain.ChainID == chainID && chain.Enabled {
			return chain, true
		}
	}
	return config.ChainConfig{}, false
}

// EnabledChains returns the enabled entries in table order, skipping
// duplicate chain ids after their first enabled occurrence.
func (t *Table) EnabledChains() []config.ChainConfig {
	seen := make(map[string]bool, len(t.chains))
	var enabled []config.ChainConfig
	for _, chain := range t.chains {
		if !chain.Enabled || seen[chain.ChainID] {
			continue
		}
		seen[chain.ChainID] = true
		enabled = append(enabled, chain)
	}
	return enabled
}

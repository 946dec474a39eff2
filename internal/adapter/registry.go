// Package adapter implements model adapter construction and lookup.
package adapter

import (
	"fmt"
	"sync"

	"auroraai/internal/config"
	"auroraai/internal/domain"
)

// Registry holds the registered model adapters. It implements
// orchestrator.AdapterSource.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]domain.ModelAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]domain.ModelAdapter)}
}

// Register adds an adapter. Adapter IDs must be unique.
func (r *Registry) Register(a domain.ModelAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.Info().ID
	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("adapter %s already registered", id)
	}
	r.adapters[id] = a
	return nil
}

// Adapter returns the adapter for an ID
func (r *Registry) Adapter(id string) (domain.ModelAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	return a, ok
}

// All returns info for every registered adapter
func (r *Registry) All() []domain.AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.AdapterInfo, 0, len(r.adapters))
	for _, a := range r.adapters {
		infos = append(infos, a.Info())
	}
	return infos
}

// FromConfig builds a registry from the configured adapter catalog
func FromConfig(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()

	for id, ac := range cfg.Adapters {
		if !ac.Enabled {
			continue
		}

		modality, ok := domain.ParseModality(ac.Modality)
		if !ok {
			return nil, fmt.Errorf("adapter %s: unknown modality %q", id, ac.Modality)
		}

		info := domain.AdapterInfo{
			ID:             id,
			Name:           ac.Name,
			Modality:       modality,
			MaxTokens:      ac.MaxTokens,
			SupportedTiers: parseTiers(ac.SupportedTiers),
		}

		var a domain.ModelAdapter
		switch ac.Kind {
		case "", "stub":
			a = NewStub(info)
		case "openai_compat":
			a = NewOpenAICompat(info, ac.BaseURL, ac.APIKey, ac.ModelID)
		default:
			return nil, fmt.Errorf("adapter %s: unknown kind %q", id, ac.Kind)
		}

		if err := r.Register(a); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func parseTiers(names []string) []domain.Tier {
	var tiers []domain.Tier
	for _, n := range names {
		if t, ok := domain.ParseTier(n); ok {
			tiers = append(tiers, t)
		}
	}
	if len(tiers) == 0 {
		tiers = []domain.Tier{domain.TierFree, domain.TierPaid}
	}
	return tiers
}

// estimateConfidence is a simple heuristic confidence score shared by
// adapters that get no confidence signal from their provider.
func estimateConfidence(content string, tokensUsed int) float64 {
	if content == "" {
		return 0
	}

	score := 0.5
	if len(content) > 100 {
		score += 0.2
	}
	if len(content) > 500 {
		score += 0.2
	}
	if tokensUsed > 50 {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

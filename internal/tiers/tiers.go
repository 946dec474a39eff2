// Package tiers implements tier classification and per-tier quota lookup.
package tiers

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"auroraai/internal/config"
	"auroraai/internal/domain"
)

// Registry resolves user tiers and supplies per-tier limits and model
// eligibility. It implements domain.TierSource.
type Registry struct {
	cfg *config.Config
}

// NewRegistry creates a tier registry backed by the loaded configuration
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// ResolveTier determines the tier for a user. Resolution order: explicit
// tier header, API key (prefix match or bcrypt hash lookup), user ID
// prefix, then free.
func (r *Registry) ResolveTier(userID string, headers map[string]string) domain.Tier {
	if userID == "" {
		return domain.TierFree
	}

	if tier, ok := domain.ParseTier(headers["x-user-tier"]); ok {
		return tier
	}

	apiKey := headers["authorization"]
	if apiKey == "" {
		apiKey = headers["x-api-key"]
	}
	apiKey = strings.TrimPrefix(apiKey, "Bearer ")
	if apiKey != "" {
		if strings.HasPrefix(apiKey, "ak-paid-") || strings.HasPrefix(apiKey, "sk-pro-") {
			return domain.TierPaid
		}
		if r.matchesTierKey(domain.TierPaid, apiKey) {
			return domain.TierPaid
		}
	}

	if strings.HasPrefix(userID, "paid_") || strings.HasPrefix(userID, "premium_") {
		return domain.TierPaid
	}

	return domain.TierFree
}

// matchesTierKey checks an API key against the tier's configured bcrypt hashes
func (r *Registry) matchesTierKey(tier domain.Tier, apiKey string) bool {
	tc := r.cfg.TierFor(tier)
	for _, hash := range tc.APIKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil {
			return true
		}
	}
	return false
}

// LimitsFor returns the rate limit numbers for a tier
func (r *Registry) LimitsFor(tier domain.Tier) domain.RateLimitConfig {
	return r.cfg.TierFor(tier).RateLimit
}

// EligibleModels returns adapter IDs available to the tier for a modality,
// in configured order. Ordering is stable because selection tie-breaking
// depends on it.
func (r *Registry) EligibleModels(tier domain.Tier, modality domain.Modality) []string {
	tc := r.cfg.TierFor(tier)

	var ids []string
	for _, id := range tc.AvailableModels {
		a, ok := r.cfg.Adapters[id]
		if !ok || !a.Enabled {
			continue
		}
		if m, ok := domain.ParseModality(a.Modality); !ok || m != modality {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// MaxTokens returns the per-request token ceiling for a tier
func (r *Registry) MaxTokens(tier domain.Tier) int {
	return r.cfg.TierFor(tier).MaxTokens
}

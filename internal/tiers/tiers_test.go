package tiers

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"auroraai/internal/config"
	"auroraai/internal/domain"
)

func TestResolveTier(t *testing.T) {
	r := NewRegistry(config.Default())

	tests := []struct {
		name    string
		userID  string
		headers map[string]string
		want    domain.Tier
	}{
		{
			name:   "empty user id is free",
			userID: "",
			want:   domain.TierFree,
		},
		{
			name:    "explicit tier header",
			userID:  "user-1",
			headers: map[string]string{"x-user-tier": "paid"},
			want:    domain.TierPaid,
		},
		{
			name:    "invalid tier header ignored",
			userID:  "user-1",
			headers: map[string]string{"x-user-tier": "platinum"},
			want:    domain.TierFree,
		},
		{
			name:    "paid api key prefix",
			userID:  "user-1",
			headers: map[string]string{"authorization": "Bearer ak-paid-abc123"},
			want:    domain.TierPaid,
		},
		{
			name:    "pro api key prefix via x-api-key",
			userID:  "user-1",
			headers: map[string]string{"x-api-key": "sk-pro-abc123"},
			want:    domain.TierPaid,
		},
		{
			name:   "paid user id prefix",
			userID: "paid_user42",
			want:   domain.TierPaid,
		},
		{
			name:   "premium user id prefix",
			userID: "premium_user42",
			want:   domain.TierPaid,
		},
		{
			name:   "plain user id is free",
			userID: "user-1",
			want:   domain.TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveTier(tt.userID, tt.headers); got != tt.want {
				t.Errorf("ResolveTier(%q, %v) = %s, want %s", tt.userID, tt.headers, got, tt.want)
			}
		})
	}
}

func TestResolveTierByKeyHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("customer-key-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	paid := cfg.Tiers["paid"]
	paid.APIKeyHashes = []string{string(hash)}
	cfg.Tiers["paid"] = paid

	r := NewRegistry(cfg)

	got := r.ResolveTier("user-1", map[string]string{"authorization": "Bearer customer-key-1"})
	if got != domain.TierPaid {
		t.Errorf("hashed key resolved to %s, want paid", got)
	}

	got = r.ResolveTier("user-1", map[string]string{"authorization": "Bearer wrong-key"})
	if got != domain.TierFree {
		t.Errorf("wrong key resolved to %s, want free", got)
	}
}

func TestEligibleModels(t *testing.T) {
	r := NewRegistry(config.Default())

	t.Run("free text models in configured order", func(t *testing.T) {
		ids := r.EligibleModels(domain.TierFree, domain.ModalityText)
		want := []string{"neuromind", "logicflow"}
		if len(ids) != len(want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("ids[%d] = %s, want %s (order must be stable)", i, ids[i], want[i])
			}
		}
	})

	t.Run("free tier has no image models", func(t *testing.T) {
		if ids := r.EligibleModels(domain.TierFree, domain.ModalityImage); len(ids) != 0 {
			t.Errorf("ids = %v, want none", ids)
		}
	})

	t.Run("paid tier gets image models", func(t *testing.T) {
		ids := r.EligibleModels(domain.TierPaid, domain.ModalityImage)
		if len(ids) != 3 {
			t.Errorf("ids = %v, want 3 image models", ids)
		}
	})

	t.Run("disabled adapters are excluded", func(t *testing.T) {
		cfg := config.Default()
		a := cfg.Adapters["logicflow"]
		a.Enabled = false
		cfg.Adapters["logicflow"] = a

		ids := NewRegistry(cfg).EligibleModels(domain.TierFree, domain.ModalityText)
		for _, id := range ids {
			if id == "logicflow" {
				t.Error("disabled adapter listed as eligible")
			}
		}
	})
}

func TestMaxTokens(t *testing.T) {
	r := NewRegistry(config.Default())

	if got := r.MaxTokens(domain.TierFree); got != 1000 {
		t.Errorf("free max tokens = %d, want 1000", got)
	}
	if got := r.MaxTokens(domain.TierPaid); got != 4000 {
		t.Errorf("paid max tokens = %d, want 4000", got)
	}
}

package quota

import (
	"errors"
	"strings"
	"testing"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestGate() *Gate {
	g := NewGate(config.QuotaConfig{
		FallbackTier: "TRIAL",
		Tiers: []config.Tier{
			{Name: "TRIAL", DisplayName: "Trial", TokenLimit: 10000, Validity: config.ValidityUntilExpiry},
			{Name: "ACTIVE", DisplayName: "Basic", TokenLimit: 100000, Validity: config.ValidityAlways},
			{Name: "PREMIUM", DisplayName: "Premium", TokenLimit: 500000, Validity: config.ValidityNone},
		},
	})
	g.now = func() time.Time { return fixedNow }
	return g
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestCheckAdmission(t *testing.T) {
	gate := newTestGate()

	tests := []struct {
		name      string
		user      db.User
		wantErr   error
		wantLimit int64
	}{
		{
			name:      "active user under limit",
			user:      db.User{SubscriptionStatus: db.SubscriptionActive, TotalTokensUsed: 500},
			wantLimit: 100000,
		},
		{
			name:      "trial user before expiry",
			user:      db.User{SubscriptionStatus: db.SubscriptionTrial, SubscriptionExpiresAt: timePtr(fixedNow.Add(time.Hour))},
			wantLimit: 10000,
		},
		{
			name:    "trial user after expiry with no usage",
			user:    db.User{SubscriptionStatus: db.SubscriptionTrial, SubscriptionExpiresAt: timePtr(fixedNow.Add(-time.Second))},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name:    "trial user exactly at expiry",
			user:    db.User{SubscriptionStatus: db.SubscriptionTrial, SubscriptionExpiresAt: timePtr(fixedNow)},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name:    "trial user without expiry",
			user:    db.User{SubscriptionStatus: db.SubscriptionTrial},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name:    "premium is not a valid subscription by default",
			user:    db.User{SubscriptionStatus: db.SubscriptionPremium},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name:    "unknown status",
			user:    db.User{SubscriptionStatus: "CANCELLED"},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name:    "active user at limit",
			user:    db.User{SubscriptionStatus: db.SubscriptionActive, TotalTokensUsed: 100000},
			wantErr: ErrQuotaExceeded,
		},
		{
			name:    "trial user over limit",
			user:    db.User{SubscriptionStatus: db.SubscriptionTrial, SubscriptionExpiresAt: timePtr(fixedNow.Add(time.Hour)), TotalTokensUsed: 12000},
			wantErr: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admission, err := gate.CheckAdmission(&tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CheckAdmission() error = %v, want %v", err, tt.wantErr)
				}
				if admission != nil {
					t.Error("CheckAdmission() returned admission on deny")
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckAdmission() unexpected error = %v", err)
			}
			if admission.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", admission.Limit, tt.wantLimit)
			}
			if admission.Remaining != tt.wantLimit-tt.user.TotalTokensUsed {
				t.Errorf("Remaining = %d, want %d", admission.Remaining, tt.wantLimit-tt.user.TotalTokensUsed)
			}
			if admission.Tier != string(tt.user.SubscriptionStatus) {
				t.Errorf("Tier = %s, want %s", admission.Tier, tt.user.SubscriptionStatus)
			}
		})
	}
}

func TestCheckAdmission_QuotaMessageIncludesLimit(t *testing.T) {
	gate := newTestGate()
	user := &db.User{SubscriptionStatus: db.SubscriptionActive, TotalTokensUsed: 150000}

	_, err := gate.CheckAdmission(user)
	if err == nil || !strings.Contains(err.Error(), "100000") {
		t.Errorf("CheckAdmission() error = %v, want message containing the limit", err)
	}
}

func TestCheckAdmission_PremiumValidWhenConfigured(t *testing.T) {
	gate := NewGate(config.QuotaConfig{
		FallbackTier: "TRIAL",
		Tiers: []config.Tier{
			{Name: "TRIAL", TokenLimit: 10000, Validity: config.ValidityUntilExpiry},
			{Name: "PREMIUM", TokenLimit: 500000, Validity: config.ValidityAlways},
		},
	})

	admission, err := gate.CheckAdmission(&db.User{SubscriptionStatus: db.SubscriptionPremium, TotalTokensUsed: 200000})
	if err != nil {
		t.Fatalf("CheckAdmission() error = %v", err)
	}
	if admission.Remaining != 300000 {
		t.Errorf("Remaining = %d, want 300000", admission.Remaining)
	}
}

func TestLimits(t *testing.T) {
	gate := newTestGate()
	expires := timePtr(fixedNow.Add(48 * time.Hour))

	tests := []struct {
		name          string
		user          db.User
		wantSub       string
		wantLimit     int64
		wantRemaining int64
		wantPercent   int
	}{
		{name: "trial partly used", user: db.User{SubscriptionStatus: db.SubscriptionTrial, TotalTokensUsed: 2345, SubscriptionExpiresAt: expires}, wantSub: "TRIAL", wantLimit: 10000, wantRemaining: 7655, wantPercent: 23},
		{name: "over limit clamps remaining", user: db.User{SubscriptionStatus: db.SubscriptionActive, TotalTokensUsed: 120000}, wantSub: "ACTIVE", wantLimit: 100000, wantRemaining: 0, wantPercent: 120},
		{name: "unknown status uses fallback limit", user: db.User{SubscriptionStatus: "LEGACY", TotalTokensUsed: 5000}, wantSub: "LEGACY", wantLimit: 10000, wantRemaining: 5000, wantPercent: 50},
		{name: "empty status reports fallback tier", user: db.User{}, wantSub: "TRIAL", wantLimit: 10000, wantRemaining: 10000, wantPercent: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := gate.Limits(&tt.user)
			if limits.Subscription != tt.wantSub {
				t.Errorf("Subscription = %s, want %s", limits.Subscription, tt.wantSub)
			}
			if limits.TokenLimit != tt.wantLimit {
				t.Errorf("TokenLimit = %d, want %d", limits.TokenLimit, tt.wantLimit)
			}
			if limits.TokensRemaining != tt.wantRemaining {
				t.Errorf("TokensRemaining = %d, want %d", limits.TokensRemaining, tt.wantRemaining)
			}
			if limits.PercentageUsed != tt.wantPercent {
				t.Errorf("PercentageUsed = %d, want %d", limits.PercentageUsed, tt.wantPercent)
			}
			if limits.SubscriptionExpiresAt != tt.user.SubscriptionExpiresAt {
				t.Error("SubscriptionExpiresAt not passed through")
			}
		})
	}
}

func TestTrialExpiry(t *testing.T) {
	gate := newTestGate()

	got := gate.TrialExpiry(7 * 24 * time.Hour)

	if want := fixedNow.Add(7 * 24 * time.Hour); !got.Equal(want) {
		t.Errorf("TrialExpiry() = %v, want %v", got, want)
	}
}

package quota

import (
	"errors"
	"fmt"
	"math"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"
)

var (
	// ErrSubscriptionExpired denies users whose plan is not current
	ErrSubscriptionExpired = errors.New("subscription expired")
	// ErrQuotaExceeded denies users who have spent their tier's token allowance
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Admission is the usage snapshot exposed when a send is allowed
type Admission struct {
	Used      int64
	Limit     int64
	Remaining int64
	Tier      string
}

// Limits is the user-facing view of the quota
type Limits struct {
	Subscription          string
	TokensUsed            int64
	TokenLimit            int64
	TokensRemaining       int64
	PercentageUsed        int
	SubscriptionExpiresAt *time.Time
}

// Gate decides whether a user may spend more tokens. It holds no per-user state;
// every check works on the user row passed in.
type Gate struct {
	tiers    map[string]config.Tier
	fallback config.Tier
	now      func() time.Time
}

// NewGate builds a Gate from the configured tier table
func NewGate(cfg config.QuotaConfig) *Gate {
	g := &Gate{
		tiers: make(map[string]config.Tier, len(cfg.Tiers)),
		now:   time.Now,
	}
	for _, tier := range cfg.Tiers {
		g.tiers[tier.Name] = tier
	}
	g.fallback = g.tiers[cfg.FallbackTier]
	return g
}

// CheckAdmission allows or denies a send for user
func (g *Gate) CheckAdmission(user *db.User) (*Admission, error) {
	if !g.IsSubscriptionValid(user) {
		return nil, fmt.Errorf("%w: renew your plan to keep chatting with the assistants", ErrSubscriptionExpired)
	}

	tier := g.tierFor(user.SubscriptionStatus)
	if user.TotalTokensUsed >= tier.TokenLimit {
		return nil, fmt.Errorf("%w: you have reached the %d token limit of your %s plan, upgrade to keep chatting",
			ErrQuotaExceeded, tier.TokenLimit, tier.DisplayName)
	}

	return &Admission{
		Used:      user.TotalTokensUsed,
		Limit:     tier.TokenLimit,
		Remaining: tier.TokenLimit - user.TotalTokensUsed,
		Tier:      string(user.SubscriptionStatus),
	}, nil
}

// IsSubscriptionValid applies the tier's validity rule; unknown tiers are never valid
func (g *Gate) IsSubscriptionValid(user *db.User) bool {
	tier, ok := g.tiers[string(user.SubscriptionStatus)]
	if !ok {
		return false
	}

	switch tier.Validity {
	case config.ValidityAlways:
		return true
	case config.ValidityUntilExpiry:
		return user.SubscriptionExpiresAt != nil && g.now().Before(*user.SubscriptionExpiresAt)
	default:
		return false
	}
}

// Limits reports the user's usage against their tier
func (g *Gate) Limits(user *db.User) *Limits {
	tier := g.tierFor(user.SubscriptionStatus)

	remaining := tier.TokenLimit - user.TotalTokensUsed
	if remaining < 0 {
		remaining = 0
	}

	percentage := 0
	if tier.TokenLimit > 0 {
		percentage = int(math.Round(float64(user.TotalTokensUsed) / float64(tier.TokenLimit) * 100))
	}

	subscription := string(user.SubscriptionStatus)
	if subscription == "" {
		subscription = g.fallback.Name
	}

	return &Limits{
		Subscription:          subscription,
		TokensUsed:            user.TotalTokensUsed,
		TokenLimit:            tier.TokenLimit,
		TokensRemaining:       remaining,
		PercentageUsed:        percentage,
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
	}
}

// TrialExpiry returns when a trial granted now for d ends
func (g *Gate) TrialExpiry(d time.Duration) time.Time {
	return g.now().Add(d)
}

// tierFor returns the tier row for a status, falling back for unknown statuses
func (g *Gate) tierFor(status db.SubscriptionStatus) config.Tier {
	if tier, ok := g.tiers[string(status)]; ok {
		return tier
	}
	return g.fallback
}

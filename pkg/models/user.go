package models

import "time"

// Tier is a subscription level, each carrying its own default request limits.
type Tier string

const (
	TierFree     Tier = "free"
	TierTest     Tier = "test"
	TierPremium  Tier = "premium"
	TierPro      Tier = "pro"
	// TierAnonymous names unauthenticated callers. It is never resolved
	// from a User record and never carries a custom_limits override; the
	// legacy search endpoint (§12 of SPEC_FULL.md) does not go through the
	// Quota Gate and does not use it.
	TierAnonymous Tier = "anonymous"
)

// Unlimited is the sentinel limit value meaning "no cap".
const Unlimited = -1

// Limits is the effective per-tier or per-user policy the Quota Gate
// enforces. A value of Unlimited means no cap; for the free tier every
// field is 0 so every request is rejected outright.
type Limits struct {
	DailyRequests   int `yaml:"daily_requests" json:"daily_requests"`
	MonthlyRequests int `yaml:"monthly_requests" json:"monthly_requests"`
	MaxModsPerRequest int `yaml:"max_mods_per_request" json:"max_mods_per_request"`
	AITokenLimit    int `yaml:"ai_token_limit" json:"ai_token_limit"`
}

// CustomLimits overrides tier defaults field-by-field; a nil pointer field
// means "inherit the tier default" for that field.
type CustomLimits struct {
	DailyRequests     *int `json:"daily_requests,omitempty"`
	MonthlyRequests   *int `json:"monthly_requests,omitempty"`
	MaxModsPerRequest *int `json:"max_mods_per_request,omitempty"`
	AITokenLimit      *int `json:"ai_token_limit,omitempty"`
}

// Counters tracks a user's consumption for the current UTC day and month.
type Counters struct {
	DailyRequestsUsed   int `json:"daily_requests_used"`
	MonthlyRequestsUsed int `json:"monthly_requests_used"`
	AITokensUsed        int `json:"ai_tokens_used"`
}

// User is the subset of account state the Quota Gate reads and mutates.
type User struct {
	ID               string        `json:"id"`
	SubscriptionTier Tier          `json:"subscription_tier"`
	Counters         Counters      `json:"counters"`
	LastRequestDate  time.Time     `json:"last_request_date"`
	CustomLimits     *CustomLimits `json:"custom_limits,omitempty"`
}

// EffectiveLimits resolves tier defaults overridden field-by-field by
// CustomLimits, per §4.M step 1.
func (u User) EffectiveLimits(tierDefaults Limits) Limits {
	eff := tierDefaults
	if u.CustomLimits == nil {
		return eff
	}
	if u.CustomLimits.DailyRequests != nil {
		eff.DailyRequests = *u.CustomLimits.DailyRequests
	}
	if u.CustomLimits.MonthlyRequests != nil {
		eff.MonthlyRequests = *u.CustomLimits.MonthlyRequests
	}
	if u.CustomLimits.MaxModsPerRequest != nil {
		eff.MaxModsPerRequest = *u.CustomLimits.MaxModsPerRequest
	}
	if u.CustomLimits.AITokenLimit != nil {
		eff.AITokenLimit = *u.CustomLimits.AITokenLimit
	}
	return eff
}

// Package quota implements the Quota Gate (§4.M): per-tier daily/monthly
// request limits and an AI-token budget, with UTC day/month rollover and
// conditional (compare-and-swap-by-date) counter updates so concurrent
// requests around midnight never lose a reset.
package quota

import (
	"context"
	"errors"
	"time"

	"github.com/modforge/assembly/pkg/models"
)

// Reason is a rejection code surfaced to the HTTP layer (§6 error codes).
type Reason string

const (
	ReasonTierForbidden    Reason = "tier_forbidden"
	ReasonDailyExceeded    Reason = "daily_exceeded"
	ReasonMonthlyExceeded  Reason = "monthly_exceeded"
	ReasonTokensExceeded   Reason = "tokens_exceeded"
)

// Rejected is returned by Check when a request must not proceed.
type Rejected struct {
	Reason Reason
}

func (r *Rejected) Error() string { return string(r.Reason) }

// ErrUserNotFound is returned by a Store when no matching user exists.
var ErrUserNotFound = errors.New("quota: user not found")

// Store is the subset of the Mod Store's user-counter persistence the Quota
// Gate needs (§4.B "writes confined to... user counters").
type Store interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	// UpdateCounters performs a conditional (compare-and-swap by date)
	// reset-then-increment atomically, so concurrent requests racing across
	// a UTC day/month boundary never lose a reset (§5).
	UpdateCounters(ctx context.Context, userID string, now time.Time, tokensUsed int) error
}

// Gate enforces tier/custom limits ahead of any paid LLM call (§7 policy:
// rate-limit/auth evaluated before any paid call).
type Gate struct {
	store  Store
	tiers  TierLookup
	nowFn  func() time.Time
}

// TierLookup resolves a tier's default Limits (pkg/config.TierRegistry
// satisfies this without pkg/quota importing pkg/config directly).
type TierLookup interface {
	Get(tier models.Tier) (models.Limits, error)
}

// New constructs a Gate. nowFn defaults to time.Now if nil; tests can
// override it to exercise day/month rollover deterministically.
func New(store Store, tiers TierLookup, nowFn func() time.Time) *Gate {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Gate{store: store, tiers: tiers, nowFn: nowFn}
}

// Check resolves effective limits, applies day/month rollover, and rejects
// the request if it would exceed any cap (§4.M steps 1-3). The free tier
// always rejects assembly/crash-doctor requests outright (§4.M, S3).
func (g *Gate) Check(ctx context.Context, userID string, requestedMaxMods int) (models.User, error) {
	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if user.SubscriptionTier == models.TierFree {
		return user, &Rejected{Reason: ReasonTierForbidden}
	}

	tierDefaults, err := g.tiers.Get(user.SubscriptionTier)
	if err != nil {
		return models.User{}, err
	}
	limits := user.EffectiveLimits(tierDefaults)

	now := g.nowFn().UTC()
	counters := rolledOverCounters(user, now)

	if limits.MaxModsPerRequest != models.Unlimited && requestedMaxMods > limits.MaxModsPerRequest {
		return user, &Rejected{Reason: ReasonTierForbidden}
	}
	if limits.DailyRequests != models.Unlimited && counters.DailyRequestsUsed >= limits.DailyRequests {
		return user, &Rejected{Reason: ReasonDailyExceeded}
	}
	if limits.MonthlyRequests != models.Unlimited && counters.MonthlyRequestsUsed >= limits.MonthlyRequests {
		return user, &Rejected{Reason: ReasonMonthlyExceeded}
	}
	if limits.AITokenLimit != models.Unlimited && counters.AITokensUsed >= limits.AITokenLimit {
		return user, &Rejected{Reason: ReasonTokensExceeded}
	}

	user.Counters = counters
	return user, nil
}

// RecordSuccess increments daily+monthly request counters by 1 and the
// token counter by tokensUsed. Called only on a successful terminal
// complete event (§4.M step 4, §7 policy, §8 cancellation invariant).
func (g *Gate) RecordSuccess(ctx context.Context, userID string, tokensUsed int) error {
	return g.store.UpdateCounters(ctx, userID, g.nowFn().UTC(), tokensUsed)
}

// rolledOverCounters zeroes daily counters when LastRequestDate is not
// today (UTC), and additionally zeroes monthly+token counters when the
// month has changed (§4.M step 2, §8 "resets daily counter to 0 on first
// request of new UTC day").
func rolledOverCounters(user models.User, now time.Time) models.Counters {
	c := user.Counters
	last := user.LastRequestDate

	if last.IsZero() || !sameUTCDay(last, now) {
		c.DailyRequestsUsed = 0
	}
	if last.IsZero() || last.Year() != now.Year() || last.Month() != now.Month() {
		c.MonthlyRequestsUsed = 0
		c.AITokensUsed = 0
	}
	return c
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

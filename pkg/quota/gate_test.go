package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/quota"
)

type fakeStore struct {
	user      models.User
	updated   bool
	lastTokens int
}

func (f *fakeStore) GetUser(_ context.Context, _ string) (models.User, error) {
	return f.user, nil
}

func (f *fakeStore) UpdateCounters(_ context.Context, _ string, now time.Time, tokensUsed int) error {
	f.updated = true
	f.lastTokens = tokensUsed
	if f.user.LastRequestDate.IsZero() || f.user.LastRequestDate.UTC().Day() != now.UTC().Day() {
		f.user.Counters.DailyRequestsUsed = 0
	}
	f.user.Counters.DailyRequestsUsed++
	f.user.Counters.MonthlyRequestsUsed++
	f.user.Counters.AITokensUsed += tokensUsed
	f.user.LastRequestDate = now
	return nil
}

type fakeTiers struct{ limits map[models.Tier]models.Limits }

func (f fakeTiers) Get(tier models.Tier) (models.Limits, error) { return f.limits[tier], nil }

func TestGate_Check_FreeTierAlwaysRejected(t *testing.T) {
	store := &fakeStore{user: models.User{SubscriptionTier: models.TierFree}}
	g := quota.New(store, fakeTiers{}, nil)

	_, err := g.Check(context.Background(), "u1", 10)
	require.Error(t, err)
	var rejected *quota.Rejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, quota.ReasonTierForbidden, rejected.Reason)
}

func TestGate_Check_DailyExceededRejectsAtCap(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{user: models.User{
		SubscriptionTier: models.TierTest,
		LastRequestDate:  now,
		Counters:         models.Counters{DailyRequestsUsed: 10},
	}}
	tiers := fakeTiers{limits: map[models.Tier]models.Limits{
		models.TierTest: {DailyRequests: 10, MonthlyRequests: 100, MaxModsPerRequest: 30, AITokenLimit: 200000},
	}}
	g := quota.New(store, tiers, func() time.Time { return now })

	_, err := g.Check(context.Background(), "u1", 10)
	require.Error(t, err)
	var rejected *quota.Rejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, quota.ReasonDailyExceeded, rejected.Reason)
}

func TestGate_Check_ResetsDailyCounterOnNewUTCDay(t *testing.T) {
	yesterday := time.Date(2026, 7, 29, 23, 0, 0, 0, time.UTC)
	today := time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC)
	store := &fakeStore{user: models.User{
		SubscriptionTier: models.TierTest,
		LastRequestDate:  yesterday,
		Counters:         models.Counters{DailyRequestsUsed: 10, MonthlyRequestsUsed: 50},
	}}
	tiers := fakeTiers{limits: map[models.Tier]models.Limits{
		models.TierTest: {DailyRequests: 10, MonthlyRequests: 100, MaxModsPerRequest: 30, AITokenLimit: 200000},
	}}
	g := quota.New(store, tiers, func() time.Time { return today })

	user, err := g.Check(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Zero(t, user.Counters.DailyRequestsUsed)
	assert.Equal(t, 50, user.Counters.MonthlyRequestsUsed, "monthly counter survives a same-month daily reset")
}

func TestGate_Check_ResetsMonthlyAndTokensOnNewMonth(t *testing.T) {
	lastMonth := time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)
	thisMonth := time.Date(2026, 7, 1, 1, 0, 0, 0, time.UTC)
	store := &fakeStore{user: models.User{
		SubscriptionTier: models.TierTest,
		LastRequestDate:  lastMonth,
		Counters:         models.Counters{MonthlyRequestsUsed: 90, AITokensUsed: 199000},
	}}
	tiers := fakeTiers{limits: map[models.Tier]models.Limits{
		models.TierTest: {DailyRequests: 10, MonthlyRequests: 100, MaxModsPerRequest: 30, AITokenLimit: 200000},
	}}
	g := quota.New(store, tiers, func() time.Time { return thisMonth })

	user, err := g.Check(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Zero(t, user.Counters.MonthlyRequestsUsed)
	assert.Zero(t, user.Counters.AITokensUsed)
}

func TestGate_Check_CustomLimitsOverrideTierDefault(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	custom := 5
	store := &fakeStore{user: models.User{
		SubscriptionTier: models.TierPremium,
		LastRequestDate:  now,
		CustomLimits:     &models.CustomLimits{MaxModsPerRequest: &custom},
	}}
	tiers := fakeTiers{limits: map[models.Tier]models.Limits{
		models.TierPremium: {DailyRequests: 50, MonthlyRequests: 1000, MaxModsPerRequest: 150, AITokenLimit: 2000000},
	}}
	g := quota.New(store, tiers, func() time.Time { return now })

	_, err := g.Check(context.Background(), "u1", 10)
	require.Error(t, err)
	var rejected *quota.Rejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, quota.ReasonTierForbidden, rejected.Reason)
}

func TestGate_RecordSuccess_IncrementsCounters(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{user: models.User{SubscriptionTier: models.TierTest, LastRequestDate: now}}
	g := quota.New(store, fakeTiers{}, func() time.Time { return now })

	require.NoError(t, g.RecordSuccess(context.Background(), "u1", 1234))
	assert.True(t, store.updated)
	assert.Equal(t, 1234, store.lastTokens)
}

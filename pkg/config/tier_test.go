package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/models"
)

func TestTierRegistry_GetAll_DefensiveCopy(t *testing.T) {
	reg := NewTierRegistry(map[models.Tier]models.Limits{
		models.TierFree: {},
		models.TierPro:  {DailyRequests: models.Unlimited},
	})

	all := reg.GetAll()
	all[models.TierPro] = models.Limits{DailyRequests: 5}

	got, err := reg.Get(models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, models.Unlimited, got.DailyRequests, "mutating GetAll()'s result must not affect the registry")
}

func TestTierRegistry_Get_NotFound(t *testing.T) {
	reg := NewTierRegistry(nil)
	_, err := reg.Get(models.TierPremium)
	require.ErrorIs(t, err, ErrTierNotFound)
}

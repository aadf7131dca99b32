package store

import (
	"path/filepath"
	"testing"
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	state, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Params.Custodian)
	assert.Empty(t, state.Accounts)
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "data", "state.json"))
	staked := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	state := model.NewPoolState(model.PoolParams{
		Owner:             "owner",
		Custodian:         "pool",
		StakeToken:        "STK",
		RewardToken:       "RWD",
		RewardRatePercent: 20,
		LockedTime:        1200 * time.Second,
		RewardPeriod:      600 * time.Second,
		PenaltyPercent:    20,
	})
	acc := model.NewAccount("alice")
	acc.Staked = uint256.MustFromDecimal("123456789012345678901234567890")
	acc.RewardAccrued = uint256.NewInt(6)
	acc.StakeTime = staked
	acc.LastUpdate = staked.Add(time.Hour)
	state.Accounts[acc.Address] = acc
	state.Forfeited = uint256.NewInt(2)

	require.NoError(t, s.Save(state))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, state.Params, loaded.Params)
	assert.Equal(t, "2", loaded.Forfeited.Dec())
	require.Contains(t, loaded.Accounts, model.Address("alice"))
	got := loaded.Accounts["alice"]
	assert.Equal(t, acc.Staked.Dec(), got.Staked.Dec())
	assert.Equal(t, uint64(6), got.RewardAccrued.Uint64())
	assert.True(t, got.StakeTime.Equal(staked))
	assert.True(t, got.LastUpdate.Equal(staked.Add(time.Hour)))
}

package notifier

import (
	"testing"
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func testParams() model.PoolParams {
	return model.PoolParams{
		Owner:             "owner",
		Custodian:         "pool",
		StakeToken:        "STK",
		RewardToken:       "RWD",
		RewardRatePercent: 20,
		LockedTime:        20 * time.Minute,
		RewardPeriod:      10 * time.Minute,
		PenaltyPercent:    20,
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(nil))
	assert.Equal(t, "999", FormatAmount(uint256.NewInt(999)))
	assert.Equal(t, "1,234,567", FormatAmount(uint256.NewInt(1234567)))
	assert.Equal(t, "1,000,000,000,000,000,000,000",
		FormatAmount(uint256.MustFromDecimal("1000000000000000000000")))
}

func TestFormatPoolStatus(t *testing.T) {
	snap := &model.PoolSnapshot{
		Params:       testParams(),
		TotalStaked:  uint256.NewInt(12000),
		TotalRewards: uint256.NewInt(40),
		Forfeited:    uint256.NewInt(2),
		Participants: 3,
		Stakers:      2,
		TakenAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	out := FormatPoolStatus(snap)
	assert.Contains(t, out, "Total staked: 12,000 STK")
	assert.Contains(t, out, "Unclaimed rewards: 40 RWD")
	assert.Contains(t, out, "Stakers: 2 / 3 accounts")
	assert.Contains(t, out, "Reward rate: 20% per 10m0s")
	assert.Contains(t, out, "Locked time: 20m0s (penalty 20%)")

	report := FormatReport(snap)
	assert.Contains(t, report, "2024-03-01")
	assert.Contains(t, report, out)
}

func TestFormatAccount(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	acc := model.NewAccount("alice")
	acc.Staked = uint256.NewInt(10)
	acc.StakeTime = now.Add(-5 * time.Minute)

	out := FormatAccount(acc, uint256.NewInt(2), testParams(), now)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Staked: 10 STK")
	assert.Contains(t, out, "Claimable now: 2 RWD")
	assert.Contains(t, out, "Unlocks in: 15m0s")

	out = FormatAccount(acc, uint256.NewInt(2), testParams(), now.Add(time.Hour))
	assert.Contains(t, out, "Unlocked")

	acc.Staked = new(uint256.Int)
	out = FormatAccount(acc, new(uint256.Int), testParams(), now)
	assert.NotContains(t, out, "Unlock")
}

func TestFormatEvent(t *testing.T) {
	p := testParams()
	tests := []struct {
		name string
		evt  model.LedgerEvent
		want string
	}{
		{"stake", model.LedgerEvent{Kind: model.OpStake, Participant: "alice", Amount: uint256.NewInt(10), TotalStaked: uint256.NewInt(15)},
			"alice staked 10 STK (pool: 15)"},
		{"unstake early", model.LedgerEvent{Kind: model.OpUnstake, Participant: "alice", Payout: uint256.NewInt(8), Forfeited: uint256.NewInt(2), TotalStaked: uint256.NewInt(5)},
			"alice unstaked 8 STK (pool: 5), 2 forfeited"},
		{"claim", model.LedgerEvent{Kind: model.OpClaim, Participant: "bob", Amount: uint256.NewInt(6)},
			"bob claimed 6 RWD"},
		{"rate", model.LedgerEvent{Kind: model.OpSetRewardRate, OldValue: "20", NewValue: "10"},
			"reward rate 20% → 10%"},
		{"locked", model.LedgerEvent{Kind: model.OpSetLockedTime, OldValue: "20m0s", NewValue: "5m0s"},
			"locked time 20m0s → 5m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatEvent(tt.evt, p), tt.want)
		})
	}

	full := FormatEvent(model.LedgerEvent{Kind: model.OpUnstake, Participant: "alice", Payout: uint256.NewInt(10), Forfeited: new(uint256.Int), TotalStaked: new(uint256.Int)}, p)
	assert.NotContains(t, full, "forfeited")
}

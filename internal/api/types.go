package api

import (
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

// Amounts travel as base-10 strings so 256-bit values survive JSON.

type AmountRequest struct {
	Amount string `json:"amount"`
}

type MintRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type RewardRateRequest struct {
	Percent uint64 `json:"percent"`
}

type LockedTimeRequest struct {
	// LockedTime is a Go duration string such as "20m".
	LockedTime string `json:"locked_time"`
}

type AmountResponse struct {
	Amount string `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type PoolView struct {
	Owner             string    `json:"owner"`
	Custodian         string    `json:"custodian"`
	StakeToken        string    `json:"stake_token"`
	RewardToken       string    `json:"reward_token"`
	RewardRatePercent uint64    `json:"reward_rate_percent"`
	LockedTime        string    `json:"locked_time"`
	RewardPeriod      string    `json:"reward_period"`
	PenaltyPercent    uint64    `json:"penalty_percent"`
	TotalStaked       string    `json:"total_staked"`
	TotalRewards      string    `json:"total_rewards"`
	Forfeited         string    `json:"forfeited"`
	Participants      int       `json:"participants"`
	Stakers           int       `json:"stakers"`
	TakenAt           time.Time `json:"taken_at"`
}

type AccountView struct {
	Address       string    `json:"address"`
	Staked        string    `json:"staked"`
	RewardAccrued string    `json:"reward_accrued"`
	PendingReward string    `json:"pending_reward"`
	LastUpdate    time.Time `json:"last_update"`
	StakeTime     time.Time `json:"stake_time"`
	UnlocksAt     time.Time `json:"unlocks_at"`
}

type BalanceView struct {
	Token     string `json:"token"`
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

type EventView struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Participant string    `json:"participant"`
	Amount      string    `json:"amount,omitempty"`
	Payout      string    `json:"payout,omitempty"`
	Forfeited   string    `json:"forfeited,omitempty"`
	TotalStaked string    `json:"total_staked,omitempty"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func newPoolView(snap *model.PoolSnapshot) PoolView {
	p := snap.Params
	return PoolView{
		Owner:             string(p.Owner),
		Custodian:         string(p.Custodian),
		StakeToken:        string(p.StakeToken),
		RewardToken:       string(p.RewardToken),
		RewardRatePercent: p.RewardRatePercent,
		LockedTime:        p.LockedTime.String(),
		RewardPeriod:      p.RewardPeriod.String(),
		PenaltyPercent:    p.PenaltyPercent,
		TotalStaked:       snap.TotalStaked.Dec(),
		TotalRewards:      snap.TotalRewards.Dec(),
		Forfeited:         snap.Forfeited.Dec(),
		Participants:      snap.Participants,
		Stakers:           snap.Stakers,
		TakenAt:           snap.TakenAt,
	}
}

func newAccountView(acc *model.Account, pending *uint256.Int, lockedTime time.Duration) AccountView {
	return AccountView{
		Address:       string(acc.Address),
		Staked:        acc.Staked.Dec(),
		RewardAccrued: acc.RewardAccrued.Dec(),
		PendingReward: pending.Dec(),
		LastUpdate:    acc.LastUpdate,
		StakeTime:     acc.StakeTime,
		UnlocksAt:     acc.StakeTime.Add(lockedTime),
	}
}

func newEventView(evt model.LedgerEvent) EventView {
	return EventView{
		ID:          evt.ID,
		Kind:        string(evt.Kind),
		Participant: string(evt.Participant),
		Amount:      decOrEmpty(evt.Amount),
		Payout:      decOrEmpty(evt.Payout),
		Forfeited:   decOrEmpty(evt.Forfeited),
		TotalStaked: decOrEmpty(evt.TotalStaked),
		OldValue:    evt.OldValue,
		NewValue:    evt.NewValue,
		Timestamp:   evt.Timestamp,
	}
}

func decOrEmpty(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}

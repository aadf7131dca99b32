package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"
)

// PoolParams holds the pool-wide parameters and identities.
// Owner, Custodian, the token ids, RewardPeriod and PenaltyPercent are fixed at creation.
type PoolParams struct {
	Owner             Address       `json:"owner"`
	Custodian         Address       `json:"custodian"`
	StakeToken        TokenID       `json:"stake_token"`
	RewardToken       TokenID       `json:"reward_token"`
	RewardRatePercent uint64        `json:"reward_rate_percent"`
	LockedTime        time.Duration `json:"locked_time"`
	RewardPeriod      time.Duration `json:"reward_period"`
	PenaltyPercent    uint64        `json:"penalty_percent"`
}

// SameIdentity reports whether the immutable parts of two parameter sets match.
func (p PoolParams) SameIdentity(o PoolParams) bool {
	return p.Owner == o.Owner &&
		p.Custodian == o.Custodian &&
		p.StakeToken == o.StakeToken &&
		p.RewardToken == o.RewardToken &&
		p.RewardPeriod == o.RewardPeriod &&
		p.PenaltyPercent == o.PenaltyPercent
}

// PoolState is the persisted form of the whole ledger.
type PoolState struct {
	Params    PoolParams           `json:"params"`
	Accounts  map[Address]*Account `json:"accounts"`
	Forfeited *uint256.Int         `json:"-"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewPoolState returns an empty state for params.
func NewPoolState(params PoolParams) *PoolState {
	return &PoolState{
		Params:    params,
		Accounts:  make(map[Address]*Account),
		Forfeited: new(uint256.Int),
	}
}

// TotalStaked sums every account's principal.
func (s *PoolState) TotalStaked() *uint256.Int {
	total := new(uint256.Int)
	for _, acc := range s.Accounts {
		total.Add(total, acc.Staked)
	}
	return total
}

// SortedAccounts returns copies of all accounts ordered by address.
func (s *PoolState) SortedAccounts() []*Account {
	out := make([]*Account, 0, len(s.Accounts))
	for _, acc := range s.Accounts {
		out = append(out, acc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

type poolStateJSON struct {
	Params    PoolParams           `json:"params"`
	Accounts  map[Address]*Account `json:"accounts"`
	Forfeited string               `json:"forfeited"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (s *PoolState) MarshalJSON() ([]byte, error) {
	forfeited := "0"
	if s.Forfeited != nil {
		forfeited = s.Forfeited.Dec()
	}
	return json.Marshal(poolStateJSON{
		Params:    s.Params,
		Accounts:  s.Accounts,
		Forfeited: forfeited,
		UpdatedAt: s.UpdatedAt,
	})
}

func (s *PoolState) UnmarshalJSON(data []byte) error {
	var raw poolStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	forfeited, err := ParseAmount(raw.Forfeited)
	if err != nil {
		return fmt.Errorf("forfeited: %w", err)
	}
	if raw.Accounts == nil {
		raw.Accounts = make(map[Address]*Account)
	}
	*s = PoolState{
		Params:    raw.Params,
		Accounts:  raw.Accounts,
		Forfeited: forfeited,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

// PoolSnapshot is a point-in-time summary used for reports.
type PoolSnapshot struct {
	Params       PoolParams
	TotalStaked  *uint256.Int
	TotalRewards *uint256.Int
	Forfeited    *uint256.Int
	Participants int
	Stakers      int
	TakenAt      time.Time
}

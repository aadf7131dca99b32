package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// Address identifies a participant, the pool custodian or the owner.
type Address string

// TokenID identifies one of the two pool tokens.
type TokenID string

// Account is the per-participant ledger record.
type Account struct {
	Address       Address
	Staked        *uint256.Int
	RewardAccrued *uint256.Int
	LastUpdate    time.Time
	StakeTime     time.Time
}

// NewAccount returns a zeroed account for addr.
func NewAccount(addr Address) *Account {
	return &Account{
		Address:       addr,
		Staked:        new(uint256.Int),
		RewardAccrued: new(uint256.Int),
	}
}

// Clone returns a deep copy, so staged changes never alias committed balances.
func (a *Account) Clone() *Account {
	return &Account{
		Address:       a.Address,
		Staked:        a.Staked.Clone(),
		RewardAccrued: a.RewardAccrued.Clone(),
		LastUpdate:    a.LastUpdate,
		StakeTime:     a.StakeTime,
	}
}

type accountJSON struct {
	Address       Address   `json:"address"`
	Staked        string    `json:"staked"`
	RewardAccrued string    `json:"reward_accrued"`
	LastUpdate    time.Time `json:"last_update"`
	StakeTime     time.Time `json:"stake_time"`
}

func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		Address:       a.Address,
		Staked:        a.Staked.Dec(),
		RewardAccrued: a.RewardAccrued.Dec(),
		LastUpdate:    a.LastUpdate,
		StakeTime:     a.StakeTime,
	})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var raw accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	staked, err := ParseAmount(raw.Staked)
	if err != nil {
		return fmt.Errorf("account %s staked: %w", raw.Address, err)
	}
	reward, err := ParseAmount(raw.RewardAccrued)
	if err != nil {
		return fmt.Errorf("account %s reward: %w", raw.Address, err)
	}
	*a = Account{
		Address:       raw.Address,
		Staked:        staked,
		RewardAccrued: reward,
		LastUpdate:    raw.LastUpdate,
		StakeTime:     raw.StakeTime,
	}
	return nil
}

// ParseAmount parses a base-10 token amount. An empty string is zero.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

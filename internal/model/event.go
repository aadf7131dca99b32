package model

import (
	"time"

	"github.com/holiman/uint256"
)

// OpKind names a committed ledger operation.
type OpKind string

const (
	OpStake         OpKind = "STAKE"
	OpUnstake       OpKind = "UNSTAKE"
	OpClaim         OpKind = "CLAIM"
	OpSetRewardRate OpKind = "SET_REWARD_RATE"
	OpSetLockedTime OpKind = "SET_LOCKED_TIME"
)

// LedgerEvent describes one committed operation.
type LedgerEvent struct {
	ID          string
	Kind        OpKind
	Participant Address
	// Amount is the staked amount for STAKE, the principal withdrawn for UNSTAKE
	// and the reward paid for CLAIM.
	Amount      *uint256.Int
	Payout      *uint256.Int // UNSTAKE only
	Forfeited   *uint256.Int // UNSTAKE only
	TotalStaked *uint256.Int
	OldValue    string // parameter changes only
	NewValue    string
	Timestamp   time.Time
}

// Package accrual holds the pure reward and penalty arithmetic of the pool.
package accrual

import (
	"errors"
	"time"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidTime is returned when the clock moved backwards past a checkpoint.
	ErrInvalidTime = errors.New("invalid time: now is before last update")
	// ErrOverflow is returned when an intermediate value does not fit in 256 bits.
	ErrOverflow = errors.New("uint256 overflow")
	// ErrInvalidPeriod is returned for a non-positive reward period.
	ErrInvalidPeriod = errors.New("reward period must be positive")
)

var hundred = uint256.NewInt(100)

// Periods returns the number of whole reward periods between from and to.
func Periods(from, to time.Time, period time.Duration) (uint64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if to.Before(from) {
		return 0, ErrInvalidTime
	}
	return uint64(to.Sub(from) / period), nil
}

// SettleReward returns previous plus the reward earned by staked over the whole
// periods elapsed since lastUpdate:
//
//	increment = staked * ratePercent / 100 * periods
//
// The division by 100 truncates before the period multiplication. Partial
// periods earn nothing.
func SettleReward(staked, previous *uint256.Int, lastUpdate, now time.Time, ratePercent uint64, period time.Duration) (*uint256.Int, error) {
	if now.Before(lastUpdate) {
		return nil, ErrInvalidTime
	}
	if staked.IsZero() || ratePercent == 0 {
		return previous.Clone(), nil
	}
	periods, err := Periods(lastUpdate, now, period)
	if err != nil {
		return nil, err
	}
	perPeriod, overflow := new(uint256.Int).MulOverflow(staked, uint256.NewInt(ratePercent))
	if overflow {
		return nil, ErrOverflow
	}
	perPeriod.Div(perPeriod, hundred)

	increment, overflow := new(uint256.Int).MulOverflow(perPeriod, uint256.NewInt(periods))
	if overflow {
		return nil, ErrOverflow
	}
	total, overflow := new(uint256.Int).AddOverflow(previous, increment)
	if overflow {
		return nil, ErrOverflow
	}
	return total, nil
}

// Payout splits staked into the amount returned on unstake and the amount
// forfeited to the pool. Withdrawing before lockedTime has passed since
// stakeTime returns floor(staked * (100 - penaltyPercent) / 100).
func Payout(staked *uint256.Int, stakeTime, now time.Time, lockedTime time.Duration, penaltyPercent uint64) (payout, forfeited *uint256.Int, err error) {
	if now.Before(stakeTime) {
		return nil, nil, ErrInvalidTime
	}
	if now.Sub(stakeTime) >= lockedTime || penaltyPercent == 0 {
		return staked.Clone(), new(uint256.Int), nil
	}
	keep := uint64(0)
	if penaltyPercent < 100 {
		keep = 100 - penaltyPercent
	}
	payout, overflow := new(uint256.Int).MulOverflow(staked, uint256.NewInt(keep))
	if overflow {
		return nil, nil, ErrOverflow
	}
	payout.Div(payout, hundred)
	forfeited = new(uint256.Int).Sub(staked, payout)
	return payout, forfeited, nil
}

// Package ledger is the staking pool: per-participant stake, unstake and
// claim plus the owner-gated pool parameters.
//
// Every operation samples the clock once, settles the caller's pending
// reward up to that instant, stages the new account state, asks the token
// collaborator to move funds and commits the staged state only when the move
// succeeded. Operations are serialized by a single mutex.
package ledger

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"StakePool/internal/accrual"
	"StakePool/internal/model"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Config wires a Pool to its collaborators.
type Config struct {
	Params   model.PoolParams
	Transfer TokenTransfer
	// Optional; default to SystemClock and OwnerAuthorizer{Params.Owner}.
	Clock Clock
	Auth  Authorizer
	// Optional; without a store the pool lives in memory only.
	Store        Store
	PromRegistry prometheus.Registerer
	// OnEvent is called after every committed operation, outside the pool lock.
	OnEvent func(model.LedgerEvent)
}

// Pool is the staking ledger.
type Pool struct {
	mu        sync.Mutex
	state     *model.PoolState
	custodian model.Address
	transfer  TokenTransfer
	clock     Clock
	auth      Authorizer
	store     Store
	onEvent   func(model.LedgerEvent)
	metrics   *poolMetrics
}

// NewPool creates a pool, restoring persisted state when the store has any.
func NewPool(cfg Config) (*Pool, error) {
	if err := validateParams(cfg.Params); err != nil {
		return nil, err
	}
	if cfg.Transfer == nil {
		return nil, fmt.Errorf("token transfer collaborator is required")
	}
	p := &Pool{
		custodian: cfg.Params.Custodian,
		transfer:  cfg.Transfer,
		clock:     cfg.Clock,
		auth:      cfg.Auth,
		store:     cfg.Store,
		onEvent:   cfg.OnEvent,
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	if p.auth == nil {
		p.auth = OwnerAuthorizer{Owner: cfg.Params.Owner}
	}

	state := model.NewPoolState(cfg.Params)
	if p.store != nil {
		stored, err := p.store.Load()
		if err != nil {
			return nil, fmt.Errorf("load pool state: %w", err)
		}
		if stored.Params.Custodian != "" {
			if !stored.Params.SameIdentity(cfg.Params) {
				return nil, fmt.Errorf("%w: stored %+v", ErrIdentityMismatch, stored.Params)
			}
			if stored.Params.RewardRatePercent != cfg.Params.RewardRatePercent ||
				stored.Params.LockedTime != cfg.Params.LockedTime {
				log.Printf("[INFO] using stored pool parameters: rate=%d%% locked=%s",
					stored.Params.RewardRatePercent, stored.Params.LockedTime)
			}
			state = stored
			log.Printf("[INFO] restored pool state: %d accounts", len(state.Accounts))
		}
	}
	p.state = state

	if cfg.PromRegistry != nil {
		p.metrics = newPoolMetrics(cfg.PromRegistry)
		p.metrics.observeState(p.state)
	}
	if err := p.save(); err != nil {
		return nil, err
	}
	return p, nil
}

func validateParams(params model.PoolParams) error {
	switch {
	case params.Owner == "":
		return fmt.Errorf("pool owner is required")
	case params.Custodian == "":
		return fmt.Errorf("pool custodian address is required")
	case params.StakeToken == "" || params.RewardToken == "":
		return fmt.Errorf("stake and reward tokens are required")
	case params.RewardPeriod <= 0:
		return fmt.Errorf("reward period must be positive, got %s", params.RewardPeriod)
	case params.LockedTime < 0:
		return fmt.Errorf("locked time must not be negative, got %s", params.LockedTime)
	case params.PenaltyPercent > 100:
		return fmt.Errorf("penalty percent must be at most 100, got %d", params.PenaltyPercent)
	}
	return nil
}

// Stake pulls amount stake tokens from caller into the pool.
func (p *Pool) Stake(ctx context.Context, caller model.Address, amount *uint256.Int) error {
	evt, err := p.stake(ctx, caller, amount)
	p.finish(model.OpStake, evt, err)
	return err
}

func (p *Pool) stake(ctx context.Context, caller model.Address, amount *uint256.Int) (*model.LedgerEvent, error) {
	if err := p.checkParticipant(caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	// Settle against the balance in effect before this stake.
	next, err := p.settled(caller, now)
	if err != nil {
		return nil, err
	}
	staked, overflow := new(uint256.Int).AddOverflow(next.Staked, amount)
	if overflow {
		return nil, ErrOverflow
	}

	params := p.state.Params
	if err := p.move(ctx, params.StakeToken, caller, params.Custodian, amount); err != nil {
		return nil, err
	}

	next.Staked = staked
	next.StakeTime = now
	next.LastUpdate = now
	p.commit(next)

	return &model.LedgerEvent{
		Kind:        model.OpStake,
		Participant: caller,
		Amount:      amount.Clone(),
		TotalStaked: p.state.TotalStaked(),
		Timestamp:   now,
	}, nil
}

// Unstake withdraws the caller's whole principal. Before the locked time has
// passed since the last stake only (100 - penalty)% is returned; the rest
// stays with the pool. Accrued reward is kept for a later claim.
func (p *Pool) Unstake(ctx context.Context, caller model.Address) (*uint256.Int, error) {
	evt, err := p.unstake(ctx, caller)
	p.finish(model.OpUnstake, evt, err)
	if err != nil {
		return nil, err
	}
	return evt.Payout.Clone(), nil
}

func (p *Pool) unstake(ctx context.Context, caller model.Address) (*model.LedgerEvent, error) {
	if err := p.checkParticipant(caller); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.state.Accounts[caller]
	if !ok || acc.Staked.IsZero() {
		return nil, ErrNothingStaked
	}

	now := p.clock.Now()
	next, err := p.settled(caller, now)
	if err != nil {
		return nil, err
	}
	params := p.state.Params
	payout, forfeited, err := accrual.Payout(next.Staked, next.StakeTime, now, params.LockedTime, params.PenaltyPercent)
	if err != nil {
		return nil, fmt.Errorf("unstake %s: %w", caller, err)
	}

	if err := p.move(ctx, params.StakeToken, params.Custodian, caller, payout); err != nil {
		return nil, err
	}

	principal := next.Staked
	next.Staked = new(uint256.Int)
	next.LastUpdate = now
	p.state.Forfeited = new(uint256.Int).Add(p.state.Forfeited, forfeited)
	p.commit(next)

	return &model.LedgerEvent{
		Kind:        model.OpUnstake,
		Participant: caller,
		Amount:      principal,
		Payout:      payout,
		Forfeited:   forfeited,
		TotalStaked: p.state.TotalStaked(),
		Timestamp:   now,
	}, nil
}

// Claim pays out the caller's settled reward in reward tokens. A zero reward
// is a successful zero transfer.
func (p *Pool) Claim(ctx context.Context, caller model.Address) (*uint256.Int, error) {
	evt, err := p.claim(ctx, caller)
	p.finish(model.OpClaim, evt, err)
	if err != nil {
		return nil, err
	}
	return evt.Amount.Clone(), nil
}

func (p *Pool) claim(ctx context.Context, caller model.Address) (*model.LedgerEvent, error) {
	if err := p.checkParticipant(caller); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	next, err := p.settled(caller, now)
	if err != nil {
		return nil, err
	}
	reward := next.RewardAccrued

	params := p.state.Params
	if err := p.move(ctx, params.RewardToken, params.Custodian, caller, reward); err != nil {
		return nil, err
	}

	// Claiming never creates an account record.
	if _, ok := p.state.Accounts[caller]; ok {
		next.RewardAccrued = new(uint256.Int)
		next.LastUpdate = now
		p.commit(next)
	}

	return &model.LedgerEvent{
		Kind:        model.OpClaim,
		Participant: caller,
		Amount:      reward,
		TotalStaked: p.state.TotalStaked(),
		Timestamp:   now,
	}, nil
}

// SetRewardRate changes the reward percentage applied per period from the
// next settlement on.
func (p *Pool) SetRewardRate(caller model.Address, percent uint64) error {
	evt, err := p.setParam(caller, model.OpSetRewardRate, func(params *model.PoolParams) (string, string, error) {
		old := params.RewardRatePercent
		params.RewardRatePercent = percent
		return strconv.FormatUint(old, 10), strconv.FormatUint(percent, 10), nil
	})
	p.finish(model.OpSetRewardRate, evt, err)
	return err
}

// SetLockedTime changes the penalty-free holding duration.
func (p *Pool) SetLockedTime(caller model.Address, d time.Duration) error {
	evt, err := p.setParam(caller, model.OpSetLockedTime, func(params *model.PoolParams) (string, string, error) {
		if d < 0 {
			return "", "", ErrInvalidAmount
		}
		old := params.LockedTime
		params.LockedTime = d
		return old.String(), d.String(), nil
	})
	p.finish(model.OpSetLockedTime, evt, err)
	return err
}

func (p *Pool) setParam(caller model.Address, kind model.OpKind, apply func(*model.PoolParams) (string, string, error)) (*model.LedgerEvent, error) {
	if !p.auth.IsOwner(caller) {
		return nil, ErrUnauthorized
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	params := p.state.Params
	oldValue, newValue, err := apply(&params)
	if err != nil {
		return nil, err
	}
	p.state.Params = params
	if err := p.save(); err != nil {
		log.Printf("[ERROR] failed to save pool state after %s: %v", kind, err)
	}

	return &model.LedgerEvent{
		Kind:        kind,
		Participant: caller,
		OldValue:    oldValue,
		NewValue:    newValue,
		TotalStaked: p.state.TotalStaked(),
		Timestamp:   p.clock.Now(),
	}, nil
}

// checkParticipant rejects addresses that cannot hold a position. The
// custodian is excluded: its moves to itself leave custody unchanged.
func (p *Pool) checkParticipant(caller model.Address) error {
	if caller == "" || caller == p.custodian {
		return ErrInvalidAddress
	}
	return nil
}

// settled returns a copy of caller's account with reward settled up to now.
// The caller holds p.mu.
func (p *Pool) settled(caller model.Address, now time.Time) (*model.Account, error) {
	acc, ok := p.state.Accounts[caller]
	if !ok {
		next := model.NewAccount(caller)
		next.LastUpdate = now
		return next, nil
	}
	next := acc.Clone()
	params := p.state.Params
	reward, err := accrual.SettleReward(acc.Staked, acc.RewardAccrued, acc.LastUpdate, now, params.RewardRatePercent, params.RewardPeriod)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", caller, err)
	}
	next.RewardAccrued = reward
	return next, nil
}

func (p *Pool) move(ctx context.Context, token model.TokenID, from, to model.Address, amount *uint256.Int) error {
	if err := p.transfer.Move(ctx, token, from, to, amount); err != nil {
		return &TransferError{Token: token, From: from, To: to, Amount: amount.Clone(), Err: err}
	}
	return nil
}

// commit installs a staged account and persists the pool. The caller holds p.mu.
func (p *Pool) commit(acc *model.Account) {
	p.state.Accounts[acc.Address] = acc
	if err := p.save(); err != nil {
		log.Printf("[ERROR] failed to save pool state for %s: %v", acc.Address, err)
	}
}

func (p *Pool) save() error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(p.state); err != nil {
		if p.metrics != nil {
			p.metrics.saveErrors.Inc()
		}
		return err
	}
	return nil
}

func (p *Pool) finish(kind model.OpKind, evt *model.LedgerEvent, err error) {
	if p.metrics != nil {
		p.metrics.operations.WithLabelValues(string(kind), errorKind(err)).Inc()
	}
	if err != nil {
		log.Printf("[WARN] %s rejected: %v", kind, err)
		return
	}
	evt.ID = uuid.NewString()
	if p.metrics != nil {
		p.metrics.observeEvent(evt)
		p.mu.Lock()
		p.metrics.observeState(p.state)
		p.mu.Unlock()
	}
	log.Printf("[INFO] %s %s amount=%s total_staked=%s", kind, evt.Participant, decOrEmpty(evt.Amount), decOrEmpty(evt.TotalStaked))
	if p.onEvent != nil {
		p.onEvent(*evt)
	}
}

func decOrEmpty(v *uint256.Int) string {
	if v == nil {
		return "-"
	}
	return v.Dec()
}

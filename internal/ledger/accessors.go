package ledger

import (
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

// StakedAmount returns addr's current principal.
func (p *Pool) StakedAmount(addr model.Address) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc, ok := p.state.Accounts[addr]; ok {
		return acc.Staked.Clone()
	}
	return new(uint256.Int)
}

// RewardAccrued returns addr's reward as of its last settlement.
func (p *Pool) RewardAccrued(addr model.Address) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc, ok := p.state.Accounts[addr]; ok {
		return acc.RewardAccrued.Clone()
	}
	return new(uint256.Int)
}

// PendingReward returns what a claim would pay right now, without settling.
func (p *Pool) PendingReward(addr model.Address) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, err := p.settled(addr, p.clock.Now())
	if err != nil {
		return nil, err
	}
	return acc.RewardAccrued, nil
}

// RewardRatePercent returns the current reward rate.
func (p *Pool) RewardRatePercent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Params.RewardRatePercent
}

// LockedTime returns the current penalty-free holding duration.
func (p *Pool) LockedTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Params.LockedTime
}

// IsOwner reports whether caller holds admin rights under the configured Authorizer.
func (p *Pool) IsOwner(caller model.Address) bool {
	return p.auth.IsOwner(caller)
}

// Params returns a copy of the pool parameters.
func (p *Pool) Params() model.PoolParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Params
}

// Account returns a copy of addr's record, or false if addr never staked.
func (p *Pool) Account(addr model.Address) (*model.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.state.Accounts[addr]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// Accounts returns copies of all records ordered by address.
func (p *Pool) Accounts() []*model.Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.SortedAccounts()
}

// TotalStaked sums all principals.
func (p *Pool) TotalStaked() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.TotalStaked()
}

// Forfeited returns the principal kept by the pool from early withdrawals.
func (p *Pool) Forfeited() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Forfeited.Clone()
}

// Snapshot summarizes the pool for reports.
func (p *Pool) Snapshot() *model.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &model.PoolSnapshot{
		Params:       p.state.Params,
		TotalStaked:  new(uint256.Int),
		TotalRewards: new(uint256.Int),
		Forfeited:    p.state.Forfeited.Clone(),
		Participants: len(p.state.Accounts),
		TakenAt:      p.clock.Now(),
	}
	for _, acc := range p.state.Accounts {
		snap.TotalStaked.Add(snap.TotalStaked, acc.Staked)
		snap.TotalRewards.Add(snap.TotalRewards, acc.RewardAccrued)
		if !acc.Staked.IsZero() {
			snap.Stakers++
		}
	}
	return snap
}

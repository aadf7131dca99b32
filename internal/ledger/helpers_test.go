package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StakePool/internal/model"
	"StakePool/internal/token"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const (
	owner     model.Address = "owner"
	alice     model.Address = "alice"
	bob       model.Address = "bob"
	custodian model.Address = "pool"
	stk       model.TokenID = "STK"
	rwd       model.TokenID = "RWD"
)

var genesis = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testParams() model.PoolParams {
	return model.PoolParams{
		Owner:             owner,
		Custodian:         custodian,
		StakeToken:        stk,
		RewardToken:       rwd,
		RewardRatePercent: 20,
		LockedTime:        1200 * time.Second,
		RewardPeriod:      600 * time.Second,
		PenaltyPercent:    20,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: genesis} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// failingTransfer rejects moves of one token while fail is set.
type failingTransfer struct {
	TokenTransfer
	token model.TokenID
	fail  bool
}

var errRejected = errors.New("rejected by test")

func (f *failingTransfer) Move(ctx context.Context, tok model.TokenID, from, to model.Address, amount *uint256.Int) error {
	if f.fail && tok == f.token {
		return errRejected
	}
	return f.TokenTransfer.Move(ctx, tok, from, to, amount)
}

type fixture struct {
	pool   *Pool
	bank   *token.Bank
	clock  *fakeClock
	events []model.LedgerEvent
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		bank:  token.NewBank(custodian, stk, rwd),
		clock: newFakeClock(),
	}
	for _, addr := range []model.Address{owner, alice, bob} {
		require.NoError(t, f.bank.Mint(stk, addr, uint256.NewInt(1000)))
		require.NoError(t, f.bank.Approve(stk, addr, uint256.NewInt(1000)))
	}
	require.NoError(t, f.bank.Mint(rwd, custodian, uint256.NewInt(100)))

	cfg := Config{
		Params:   testParams(),
		Transfer: f.bank,
		Clock:    f.clock,
		OnEvent:  func(evt model.LedgerEvent) { f.events = append(f.events, evt) },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	pool, err := NewPool(cfg)
	require.NoError(t, err)
	f.pool = pool
	return f
}

func (f *fixture) balance(t *testing.T, tok model.TokenID, addr model.Address) uint64 {
	t.Helper()
	v, err := f.bank.BalanceOf(tok, addr)
	require.NoError(t, err)
	return v.Uint64()
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

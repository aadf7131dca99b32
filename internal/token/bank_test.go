package token

import (
	"context"
	"path/filepath"
	"testing"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stk  model.TokenID = "STK"
	rwd  model.TokenID = "RWD"
	pool model.Address = "pool"
)

func balance(t *testing.T, b *Bank, token model.TokenID, addr model.Address) uint64 {
	t.Helper()
	v, err := b.BalanceOf(token, addr)
	require.NoError(t, err)
	return v.Uint64()
}

func TestBank_TransferFromNeedsAllowance(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	require.NoError(t, b.Mint(stk, "alice", uint256.NewInt(100)))

	err := b.Move(context.Background(), stk, "alice", pool, uint256.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)
	assert.Equal(t, uint64(100), balance(t, b, stk, "alice"))

	require.NoError(t, b.Approve(stk, "alice", uint256.NewInt(15)))
	require.NoError(t, b.Move(context.Background(), stk, "alice", pool, uint256.NewInt(10)))
	assert.Equal(t, uint64(90), balance(t, b, stk, "alice"))
	assert.Equal(t, uint64(10), balance(t, b, stk, pool))

	left, err := b.Allowance(stk, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), left.Uint64())
}

func TestBank_CustodianMovesWithoutAllowance(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	require.NoError(t, b.Mint(rwd, pool, uint256.NewInt(100)))

	require.NoError(t, b.Move(context.Background(), rwd, pool, "alice", uint256.NewInt(6)))
	assert.Equal(t, uint64(94), balance(t, b, rwd, pool))
	assert.Equal(t, uint64(6), balance(t, b, rwd, "alice"))
}

func TestBank_Rejections(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	require.NoError(t, b.Mint(stk, "alice", uint256.NewInt(5)))
	require.NoError(t, b.Approve(stk, "alice", uint256.NewInt(50)))

	err := b.Move(context.Background(), stk, "alice", pool, uint256.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	err = b.Move(context.Background(), "XYZ", "alice", pool, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrUnknownToken)

	err = b.Move(context.Background(), rwd, pool, "alice", uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.ErrorIs(t, b.Mint(stk, "", uint256.NewInt(1)), ErrInvalidAddress)
}

func TestBank_MoveRejectsRecipientOverflow(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	ceiling := new(uint256.Int).SetAllOne()
	require.NoError(t, b.Mint(stk, pool, uint256.NewInt(15)))
	require.NoError(t, b.Mint(stk, "bob", ceiling))
	require.NoError(t, b.Approve(stk, "bob", ceiling))

	err := b.Move(context.Background(), stk, "bob", pool, ceiling)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, uint64(15), balance(t, b, stk, pool))
	bobBal, err := b.BalanceOf(stk, "bob")
	require.NoError(t, err)
	assert.True(t, bobBal.Eq(ceiling), "nothing is debited on overflow")
	allowance, err := b.Allowance(stk, "bob")
	require.NoError(t, err)
	assert.True(t, allowance.Eq(ceiling))

	assert.ErrorIs(t, b.Mint(stk, pool, ceiling), ErrBalanceOverflow)
}

func TestBank_SelfMoveKeepsBalance(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	require.NoError(t, b.Mint(rwd, pool, uint256.NewInt(7)))
	require.NoError(t, b.Move(context.Background(), rwd, pool, pool, uint256.NewInt(5)))
	assert.Equal(t, uint64(7), balance(t, b, rwd, pool))
}

func TestBank_ZeroMoveSucceeds(t *testing.T) {
	b := NewBank(pool, stk, rwd)
	require.NoError(t, b.Move(context.Background(), rwd, pool, "alice", new(uint256.Int)))
	assert.Equal(t, uint64(0), balance(t, b, rwd, "alice"))
}

func TestLoadBank_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "bank.json")

	b, existed, err := LoadBank(path, pool, stk, rwd)
	require.NoError(t, err)
	assert.False(t, existed)
	require.NoError(t, b.Mint(stk, "alice", uint256.NewInt(40)))
	require.NoError(t, b.Approve(stk, "alice", uint256.NewInt(25)))

	restored, existed, err := LoadBank(path, pool, stk, rwd)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, uint64(40), balance(t, restored, stk, "alice"))
	allowance, err := restored.Allowance(stk, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), allowance.Uint64())

	_, _, err = LoadBank(path, "other-pool", stk, rwd)
	assert.Error(t, err)
}

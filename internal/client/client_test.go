package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StakePool/internal/api"
	"StakePool/internal/ledger"
	"StakePool/internal/model"
	"StakePool/internal/token"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newServer(t *testing.T) (*httptest.Server, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	bank := token.NewBank("pool", "STK", "RWD")
	require.NoError(t, bank.Mint("STK", "alice", uint256.NewInt(1000)))
	require.NoError(t, bank.Mint("RWD", "pool", uint256.NewInt(1000)))

	pool, err := ledger.NewPool(ledger.Config{
		Params: model.PoolParams{
			Owner: "owner", Custodian: "pool", StakeToken: "STK", RewardToken: "RWD",
			RewardRatePercent: 20, LockedTime: 20 * time.Minute, RewardPeriod: 10 * time.Minute, PenaltyPercent: 20,
		},
		Transfer: bank,
		Clock:    clock,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewServer(api.Options{Ledger: pool, Bank: bank}).Handler())
	t.Cleanup(srv.Close)
	return srv, clock
}

func TestClient_EarlyUnstakePaysPenalty(t *testing.T) {
	srv, clock := newServer(t)
	ctx := context.Background()
	alice := New(srv.URL+"/", "alice")

	bal, err := alice.Approve(ctx, "STK", "100")
	require.NoError(t, err)
	assert.Equal(t, "100", bal.Allowance)

	staked, err := alice.Stake(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "100", staked)

	clock.now = clock.now.Add(600 * time.Second)

	acct, err := alice.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "20", acct.PendingReward)

	payout, err := alice.Unstake(ctx)
	require.NoError(t, err)
	assert.Equal(t, "80", payout)

	reward, err := alice.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20", reward)

	pool, err := alice.Pool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20", pool.Forfeited)
	assert.Equal(t, "0", pool.TotalStaked)

	bal, err = alice.Balance(ctx, "STK", "alice")
	require.NoError(t, err)
	assert.Equal(t, "980", bal.Balance)
}

func TestClient_AdminCalls(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	owner := New(srv.URL, "owner")

	pool, err := owner.SetRewardRate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), pool.RewardRatePercent)

	pool, err = owner.SetLockedTime(ctx, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1m30s", pool.LockedTime)

	bal, err := owner.Mint(ctx, "STK", "bob", "5")
	require.NoError(t, err)
	assert.Equal(t, "5", bal.Balance)

	_, err = New(srv.URL, "bob").SetRewardRate(ctx, 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Kind)
}

func TestClient_Errors(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	_, err := New(srv.URL, "alice").Account(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New(srv.URL, "").Claim(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "missing_caller", apiErr.Kind)

	// history is not served without a recorder
	_, err = New(srv.URL, "alice").History(ctx, "alice", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer plain.Close()
	_, err = New(plain.URL, "alice").Pool(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
}

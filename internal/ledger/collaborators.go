package ledger

import (
	"context"
	"time"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

// Clock supplies the current time. It must never go backwards.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in whole seconds.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// TokenTransfer moves tokens between the custodian and participants. A nil
// error means the move happened; anything else means nothing moved.
type TokenTransfer interface {
	Move(ctx context.Context, token model.TokenID, from, to model.Address, amount *uint256.Int) error
}

// Authorizer decides who may change pool parameters.
type Authorizer interface {
	IsOwner(caller model.Address) bool
}

// OwnerAuthorizer grants admin rights to a single address.
type OwnerAuthorizer struct {
	Owner model.Address
}

func (a OwnerAuthorizer) IsOwner(caller model.Address) bool {
	return caller != "" && caller == a.Owner
}

// Store persists the pool state. Load returns a zero state when nothing was saved yet.
type Store interface {
	Load() (*model.PoolState, error)
	Save(state *model.PoolState) error
}

package ledger

import (
	"errors"
	"fmt"

	"StakePool/internal/accrual"
	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAddress = errors.New("invalid participant address")
	ErrNothingStaked  = errors.New("nothing staked")
	ErrUnauthorized   = errors.New("not owner")
	ErrTransferFailed = errors.New("token transfer failed")
	ErrInvalidTime    = accrual.ErrInvalidTime
	ErrOverflow       = accrual.ErrOverflow
	// ErrIdentityMismatch is returned when stored state belongs to a pool with
	// different owner, custodian, tokens or fixed constants.
	ErrIdentityMismatch = errors.New("stored pool identity does not match configuration")
)

// TransferError is returned when the token collaborator rejects a move.
// It matches ErrTransferFailed with errors.Is and unwraps to the cause.
type TransferError struct {
	Token  model.TokenID
	From   model.Address
	To     model.Address
	Amount *uint256.Int
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s %s from %s to %s: %v", ErrTransferFailed, e.Amount.Dec(), e.Token, e.From, e.To, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool { return target == ErrTransferFailed }

// errorKind maps an error to a short label for metrics and logs.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrNothingStaked):
		return "nothing_staked"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	default:
		return "error"
	}
}

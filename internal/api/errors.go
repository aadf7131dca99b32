package api

import (
	"errors"
	"net/http"

	"StakePool/internal/ledger"
	"StakePool/internal/token"
)

var (
	errNotFound      = errors.New("not found")
	errMissingCaller = errors.New("missing " + CallerHeader + " header")
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string { return e.cause.Error() }

func (e *httpError) Unwrap() error { return e.cause }

func badRequest(cause error) error {
	return &httpError{cause: cause, status: http.StatusBadRequest}
}

// statusOf maps ledger and bank errors to an HTTP status and a stable kind label.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidAddress), errors.Is(err, token.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	case errors.Is(err, errMissingCaller):
		return http.StatusUnauthorized, "missing_caller"
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, ledger.ErrNothingStaked):
		return http.StatusConflict, "nothing_staked"
	case errors.Is(err, token.ErrUnknownToken), errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrTransferFailed),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity, "transfer_failed"
	case errors.Is(err, ledger.ErrOverflow), errors.Is(err, token.ErrBalanceOverflow):
		return http.StatusUnprocessableEntity, "overflow"
	case errors.Is(err, ledger.ErrInvalidTime):
		return http.StatusConflict, "invalid_time"
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.status, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

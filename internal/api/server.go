// Package api exposes the staking pool over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"StakePool/internal/model"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CallerHeader carries the address the request acts as.
const CallerHeader = "X-Caller"

const jsonContentType = "application/json; charset=utf-8"

// Ledger is the pool surface served over HTTP.
type Ledger interface {
	Stake(ctx context.Context, caller model.Address, amount *uint256.Int) error
	Unstake(ctx context.Context, caller model.Address) (*uint256.Int, error)
	Claim(ctx context.Context, caller model.Address) (*uint256.Int, error)
	SetRewardRate(caller model.Address, percent uint64) error
	SetLockedTime(caller model.Address, d time.Duration) error
	IsOwner(caller model.Address) bool
	Snapshot() *model.PoolSnapshot
	Params() model.PoolParams
	Account(addr model.Address) (*model.Account, bool)
	Accounts() []*model.Account
	PendingReward(addr model.Address) (*uint256.Int, error)
}

// Bank is the token surface served over HTTP.
type Bank interface {
	Approve(token model.TokenID, owner model.Address, amount *uint256.Int) error
	Mint(token model.TokenID, addr model.Address, amount *uint256.Int) error
	BalanceOf(token model.TokenID, addr model.Address) (*uint256.Int, error)
	Allowance(token model.TokenID, owner model.Address) (*uint256.Int, error)
}

// History serves recorded ledger events.
type History interface {
	History(participant model.Address, limit int) ([]model.LedgerEvent, error)
}

// Options wires a Server. History and Gatherer are optional.
type Options struct {
	Ledger   Ledger
	Bank     Bank
	History  History
	Gatherer prometheus.Gatherer
}

// Server routes HTTP requests to the pool and the token bank.
type Server struct {
	ledger  Ledger
	bank    Bank
	history History
	router  *mux.Router
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	s := &Server{
		ledger:  opts.Ledger,
		bank:    opts.Bank,
		history: opts.History,
		router:  mux.NewRouter(),
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Path("/pool").Methods(http.MethodGet).Name("get-pool").HandlerFunc(wrap(s.handleGetPool))
	v1.Path("/stake").Methods(http.MethodPost).Name("post-stake").HandlerFunc(wrap(s.handleStake))
	v1.Path("/unstake").Methods(http.MethodPost).Name("post-unstake").HandlerFunc(wrap(s.handleUnstake))
	v1.Path("/claim").Methods(http.MethodPost).Name("post-claim").HandlerFunc(wrap(s.handleClaim))
	v1.Path("/accounts").Methods(http.MethodGet).Name("get-accounts").HandlerFunc(wrap(s.handleListAccounts))
	v1.Path("/accounts/{address}").Methods(http.MethodGet).Name("get-account").HandlerFunc(wrap(s.handleGetAccount))
	v1.Path("/accounts/{address}/history").Methods(http.MethodGet).Name("get-account-history").HandlerFunc(wrap(s.handleHistory))
	v1.Path("/events").Methods(http.MethodGet).Name("get-events").HandlerFunc(wrap(s.handleHistory))

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Path("/reward-rate").Methods(http.MethodPost).Name("post-reward-rate").HandlerFunc(wrap(s.handleSetRewardRate))
	admin.Path("/locked-time").Methods(http.MethodPost).Name("post-locked-time").HandlerFunc(wrap(s.handleSetLockedTime))

	tokens := v1.PathPrefix("/tokens/{token}").Subrouter()
	tokens.Path("/approve").Methods(http.MethodPost).Name("post-approve").HandlerFunc(wrap(s.handleApprove))
	tokens.Path("/mint").Methods(http.MethodPost).Name("post-mint").HandlerFunc(wrap(s.handleMint))
	tokens.Path("/balances/{address}").Methods(http.MethodGet).Name("get-balance").HandlerFunc(wrap(s.handleGetBalance))

	if opts.Gatherer != nil {
		s.router.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] api listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("[INFO] api stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts a handlerFunc to http.HandlerFunc and renders returned errors as JSON.
func wrap(f handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status, kind := statusOf(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		}
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Kind: kind})
	}
}

func writeJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", jsonContentType)
	return json.NewEncoder(w).Encode(obj)
}

// parseJSON decodes a request body in strict mode. An empty body leaves v untouched.
func parseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func caller(r *http.Request) (model.Address, error) {
	c := r.Header.Get(CallerHeader)
	if c == "" {
		return "", errMissingCaller
	}
	return model.Address(c), nil
}

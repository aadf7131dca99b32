package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"StakePool/internal/ledger"
	"StakePool/internal/model"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
)

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, newPoolView(s.ledger.Snapshot()))
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	amount, err := parseAmountBody(r)
	if err != nil {
		return err
	}
	if err := s.ledger.Stake(r.Context(), who, amount); err != nil {
		return err
	}
	return writeJSON(w, AmountResponse{Amount: amount.Dec()})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	payout, err := s.ledger.Unstake(r.Context(), who)
	if err != nil {
		return err
	}
	return writeJSON(w, AmountResponse{Amount: payout.Dec()})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	reward, err := s.ledger.Claim(r.Context(), who)
	if err != nil {
		return err
	}
	return writeJSON(w, AmountResponse{Amount: reward.Dec()})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) error {
	locked := s.ledger.Params().LockedTime
	accounts := s.ledger.Accounts()
	views := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		pending, err := s.ledger.PendingReward(acc.Address)
		if err != nil {
			return err
		}
		views = append(views, newAccountView(acc, pending, locked))
	}
	return writeJSON(w, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) error {
	addr := model.Address(mux.Vars(r)["address"])
	acc, ok := s.ledger.Account(addr)
	if !ok {
		return fmt.Errorf("account %s: %w", addr, errNotFound)
	}
	pending, err := s.ledger.PendingReward(addr)
	if err != nil {
		return err
	}
	return writeJSON(w, newAccountView(acc, pending, s.ledger.Params().LockedTime))
}

// handleHistory serves both the global event feed and one participant's history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) error {
	if s.history == nil {
		return fmt.Errorf("history: %w", errNotFound)
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(fmt.Errorf("invalid limit %q", v))
		}
		limit = n
	}
	events, err := s.history.History(model.Address(mux.Vars(r)["address"]), limit)
	if err != nil {
		return err
	}
	views := make([]EventView, 0, len(events))
	for _, evt := range events {
		views = append(views, newEventView(evt))
	}
	return writeJSON(w, views)
}

func (s *Server) handleSetRewardRate(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	var req RewardRateRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}
	if err := s.ledger.SetRewardRate(who, req.Percent); err != nil {
		return err
	}
	return writeJSON(w, newPoolView(s.ledger.Snapshot()))
}

func (s *Server) handleSetLockedTime(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	var req LockedTimeRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}
	d, err := time.ParseDuration(req.LockedTime)
	if err != nil {
		return badRequest(fmt.Errorf("invalid locked_time: %w", err))
	}
	if err := s.ledger.SetLockedTime(who, d); err != nil {
		return err
	}
	return writeJSON(w, newPoolView(s.ledger.Snapshot()))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	tok := model.TokenID(mux.Vars(r)["token"])
	amount, err := parseAmountBody(r)
	if err != nil {
		return err
	}
	if err := s.bank.Approve(tok, who, amount); err != nil {
		return err
	}
	return s.writeBalance(w, tok, who)
}

// handleMint credits tokens out of thin air; only a pool admin may call it.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) error {
	who, err := caller(r)
	if err != nil {
		return err
	}
	if !s.ledger.IsOwner(who) {
		return ledger.ErrUnauthorized
	}
	tok := model.TokenID(mux.Vars(r)["token"])
	var req MintRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}
	to := model.Address(req.Address)
	if err := s.bank.Mint(tok, to, amount); err != nil {
		return err
	}
	return s.writeBalance(w, tok, to)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) error {
	vars := mux.Vars(r)
	return s.writeBalance(w, model.TokenID(vars["token"]), model.Address(vars["address"]))
}

func (s *Server) writeBalance(w http.ResponseWriter, tok model.TokenID, addr model.Address) error {
	balance, err := s.bank.BalanceOf(tok, addr)
	if err != nil {
		return err
	}
	allowance, err := s.bank.Allowance(tok, addr)
	if err != nil {
		return err
	}
	return writeJSON(w, BalanceView{
		Token:     string(tok),
		Address:   string(addr),
		Balance:   balance.Dec(),
		Allowance: allowance.Dec(),
	})
}

func parseAmountBody(r *http.Request) (*uint256.Int, error) {
	var req AmountRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return nil, err
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}
	return amount, nil
}

// Package token is an in-process bank for the pool's stake and reward tokens.
// Moves that debit anyone other than the custodian spend the allowance that
// account granted to the custodian, like an ERC20 transferFrom.
package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

var (
	ErrUnknownToken          = errors.New("unknown token")
	ErrInsufficientBalance   = errors.New("not enough balance for transfer")
	ErrInsufficientAllowance = errors.New("not enough allowance for transfer")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrBalanceOverflow       = errors.New("balance overflows uint256")
)

// Ledger holds balances and allowances for one token.
type Ledger struct {
	Balances map[model.Address]*uint256.Int
	// Allowances[owner][spender]
	Allowances map[model.Address]map[model.Address]*uint256.Int
}

func newLedger() *Ledger {
	return &Ledger{
		Balances:   make(map[model.Address]*uint256.Int),
		Allowances: make(map[model.Address]map[model.Address]*uint256.Int),
	}
}

func (l *Ledger) balance(addr model.Address) *uint256.Int {
	if b, ok := l.Balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

func (l *Ledger) allowance(owner, spender model.Address) *uint256.Int {
	if m, ok := l.Allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(uint256.Int)
}

// Bank moves tokens on behalf of the custodian.
type Bank struct {
	mu        sync.Mutex
	custodian model.Address
	tokens    map[model.TokenID]*Ledger
	filePath  string
}

// NewBank creates a bank that knows the given tokens. The custodian is the
// spender for all allowance-backed moves.
func NewBank(custodian model.Address, tokens ...model.TokenID) *Bank {
	b := &Bank{
		custodian: custodian,
		tokens:    make(map[model.TokenID]*Ledger, len(tokens)),
	}
	for _, id := range tokens {
		b.tokens[id] = newLedger()
	}
	return b
}

// Custodian returns the address the bank spends allowances for.
func (b *Bank) Custodian() model.Address {
	return b.custodian
}

// Move transfers amount of token from one address to another. A zero amount
// succeeds without touching balances.
func (b *Bank) Move(_ context.Context, token model.TokenID, from, to model.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if from == "" || to == "" {
		return ErrInvalidAddress
	}
	if amount.IsZero() {
		return nil
	}

	bal := l.balance(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, from, bal.Dec(), token, amount.Dec())
	}
	var allowance *uint256.Int
	if from != b.custodian {
		allowance = l.allowance(from, b.custodian)
		if allowance.Lt(amount) {
			return fmt.Errorf("%w: %s approved %s %s, needs %s", ErrInsufficientAllowance, from, allowance.Dec(), token, amount.Dec())
		}
	}

	debited := new(uint256.Int).Sub(bal, amount)
	credited := l.balance(to)
	if to == from {
		credited = debited
	}
	credited, overflow := new(uint256.Int).AddOverflow(credited, amount)
	if overflow {
		return fmt.Errorf("%w: %s balance of %s", ErrBalanceOverflow, token, to)
	}

	l.Balances[from] = debited
	l.Balances[to] = credited
	if allowance != nil {
		l.Allowances[from][b.custodian] = new(uint256.Int).Sub(allowance, amount)
	}
	b.persist()
	return nil
}

// Approve sets the allowance owner grants to the custodian.
func (b *Bank) Approve(token model.TokenID, owner model.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if owner == "" {
		return ErrInvalidAddress
	}
	if l.Allowances[owner] == nil {
		l.Allowances[owner] = make(map[model.Address]*uint256.Int)
	}
	l.Allowances[owner][b.custodian] = amount.Clone()
	b.persist()
	return nil
}

// Mint credits amount of token to addr.
func (b *Bank) Mint(token model.TokenID, addr model.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if addr == "" {
		return ErrInvalidAddress
	}
	sum, overflow := new(uint256.Int).AddOverflow(l.balance(addr), amount)
	if overflow {
		return fmt.Errorf("%w: mint %s to %s", ErrBalanceOverflow, token, addr)
	}
	l.Balances[addr] = sum
	b.persist()
	return nil
}

// BalanceOf returns a copy of addr's balance of token.
func (b *Bank) BalanceOf(token model.TokenID, addr model.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return l.balance(addr).Clone(), nil
}

// Allowance returns what owner has approved the custodian to spend.
func (b *Bank) Allowance(token model.TokenID, owner model.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return l.allowance(owner, b.custodian).Clone(), nil
}

func (b *Bank) persist() {
	if b.filePath == "" {
		return
	}
	if err := saveBank(b.filePath, b); err != nil {
		log.Printf("[ERROR] failed to save token bank: %v", err)
	}
}

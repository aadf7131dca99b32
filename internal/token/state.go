package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
)

type ledgerFile struct {
	Balances   map[model.Address]string                   `json:"balances"`
	Allowances map[model.Address]map[model.Address]string `json:"allowances"`
}

type bankFile struct {
	Custodian model.Address                 `json:"custodian"`
	Tokens    map[model.TokenID]*ledgerFile `json:"tokens"`
}

// LoadBank restores a bank from filePath, or creates an empty one if the file
// does not exist. Every later mutation is written back to filePath.
func LoadBank(filePath string, custodian model.Address, tokens ...model.TokenID) (*Bank, bool, error) {
	b := NewBank(custodian, tokens...)
	b.filePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return b, false, nil
		}
		return nil, false, err
	}
	var f bankFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("decode token bank: %w", err)
	}
	if f.Custodian != custodian {
		return nil, false, fmt.Errorf("token bank custodian is %q, config says %q", f.Custodian, custodian)
	}
	for id, lf := range f.Tokens {
		l, ok := b.tokens[id]
		if !ok {
			return nil, false, fmt.Errorf("%w in bank file: %s", ErrUnknownToken, id)
		}
		for addr, s := range lf.Balances {
			v, err := model.ParseAmount(s)
			if err != nil {
				return nil, false, err
			}
			l.Balances[addr] = v
		}
		for owner, m := range lf.Allowances {
			l.Allowances[owner] = make(map[model.Address]*uint256.Int, len(m))
			for spender, s := range m {
				v, err := model.ParseAmount(s)
				if err != nil {
					return nil, false, err
				}
				l.Allowances[owner][spender] = v
			}
		}
	}
	return b, true, nil
}

// saveBank writes the bank; the caller holds b.mu.
func saveBank(filePath string, b *Bank) error {
	f := bankFile{
		Custodian: b.custodian,
		Tokens:    make(map[model.TokenID]*ledgerFile, len(b.tokens)),
	}
	for id, l := range b.tokens {
		lf := &ledgerFile{
			Balances:   make(map[model.Address]string, len(l.Balances)),
			Allowances: make(map[model.Address]map[model.Address]string, len(l.Allowances)),
		}
		for addr, v := range l.Balances {
			lf.Balances[addr] = v.Dec()
		}
		for owner, m := range l.Allowances {
			lf.Allowances[owner] = make(map[model.Address]string, len(m))
			for spender, v := range m {
				lf.Allowances[owner][spender] = v.Dec()
			}
		}
		f.Tokens[id] = lf
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}

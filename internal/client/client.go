// Package client talks to a running stakepool server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StakePool/internal/api"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-200 response from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("http %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Is makes 404 responses match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client calls the API as one caller address.
type Client struct {
	url    string
	caller string
	c      *http.Client
}

// New creates a Client for the server at baseURL acting as caller.
func New(baseURL, caller string) *Client {
	return NewWithHTTP(baseURL, caller, &http.Client{Timeout: 30 * time.Second})
}

func NewWithHTTP(baseURL, caller string, c *http.Client) *Client {
	return &Client{url: strings.TrimRight(baseURL, "/"), caller: caller, c: c}
}

// Stake deposits amount (base-10) stake tokens.
func (c *Client) Stake(ctx context.Context, amount string) (string, error) {
	var res api.AmountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/stake", api.AmountRequest{Amount: amount}, &res); err != nil {
		return "", fmt.Errorf("stake: %w", err)
	}
	return res.Amount, nil
}

// Unstake withdraws the whole principal and returns the payout.
func (c *Client) Unstake(ctx context.Context) (string, error) {
	var res api.AmountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/unstake", nil, &res); err != nil {
		return "", fmt.Errorf("unstake: %w", err)
	}
	return res.Amount, nil
}

// Claim pays out the accrued reward.
func (c *Client) Claim(ctx context.Context) (string, error) {
	var res api.AmountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/claim", nil, &res); err != nil {
		return "", fmt.Errorf("claim: %w", err)
	}
	return res.Amount, nil
}

// Approve lets the pool pull up to amount of token from the caller.
func (c *Client) Approve(ctx context.Context, token, amount string) (*api.BalanceView, error) {
	var res api.BalanceView
	path := "/v1/tokens/" + url.PathEscape(token) + "/approve"
	if err := c.do(ctx, http.MethodPost, path, api.AmountRequest{Amount: amount}, &res); err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	return &res, nil
}

// Mint credits amount of token to addr. Owner only.
func (c *Client) Mint(ctx context.Context, token, addr, amount string) (*api.BalanceView, error) {
	var res api.BalanceView
	path := "/v1/tokens/" + url.PathEscape(token) + "/mint"
	if err := c.do(ctx, http.MethodPost, path, api.MintRequest{Address: addr, Amount: amount}, &res); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	return &res, nil
}

// Balance returns addr's balance and allowance of token.
func (c *Client) Balance(ctx context.Context, token, addr string) (*api.BalanceView, error) {
	var res api.BalanceView
	path := "/v1/tokens/" + url.PathEscape(token) + "/balances/" + url.PathEscape(addr)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return &res, nil
}

// Pool returns the pool summary.
func (c *Client) Pool(ctx context.Context) (*api.PoolView, error) {
	var res api.PoolView
	if err := c.do(ctx, http.MethodGet, "/v1/pool", nil, &res); err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	return &res, nil
}

// Account returns addr's position.
func (c *Client) Account(ctx context.Context, addr string) (*api.AccountView, error) {
	var res api.AccountView
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(addr), nil, &res); err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	return &res, nil
}

// History returns addr's most recent operations, newest first.
func (c *Client) History(ctx context.Context, addr string, limit int) ([]api.EventView, error) {
	var res []api.EventView
	path := "/v1/accounts/" + url.PathEscape(addr) + "/history?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return res, nil
}

// SetRewardRate changes the per-period reward percentage. Owner only.
func (c *Client) SetRewardRate(ctx context.Context, percent uint64) (*api.PoolView, error) {
	var res api.PoolView
	if err := c.do(ctx, http.MethodPost, "/v1/admin/reward-rate", api.RewardRateRequest{Percent: percent}, &res); err != nil {
		return nil, fmt.Errorf("set reward rate: %w", err)
	}
	return &res, nil
}

// SetLockedTime changes the early-withdrawal window. Owner only.
func (c *Client) SetLockedTime(ctx context.Context, d time.Duration) (*api.PoolView, error) {
	var res api.PoolView
	if err := c.do(ctx, http.MethodPost, "/v1/admin/locked-time", api.LockedTimeRequest{LockedTime: d.String()}, &res); err != nil {
		return nil, fmt.Errorf("set locked time: %w", err)
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.caller != "" {
		req.Header.Set(api.CallerHeader, c.caller)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var er api.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			apiErr.Kind = er.Kind
			apiErr.Message = er.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

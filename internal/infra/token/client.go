package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// Client is a RewardHook backed by a remote token service speaking the
// Handler protocol.
type Client struct {
	baseURL string
	minter  domain.Address
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. Requests are made
// as minter.
func NewClient(baseURL string, minter domain.Address) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		minter:  minter,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Mint implements domain.RewardHook.
func (c *Client) Mint(ctx context.Context, to domain.Address, amount int64) error {
	return c.post(ctx, "/mint", mintRequest{To: to, Amount: amount}, nil)
}

// Burn implements domain.RewardHook.
func (c *Client) Burn(ctx context.Context, from domain.Address, amount int64) error {
	return c.post(ctx, "/burn", burnRequest{From: from, Amount: amount}, nil)
}

// BalanceOf queries the remote balance of addr.
func (c *Client) BalanceOf(ctx context.Context, addr domain.Address) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/balance/"+url.PathEscape(string(addr)), nil)
	if err != nil {
		return 0, err
	}
	var out balanceResponse
	if err := c.do(req, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set(CallerHeader, string(c.minter))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body errorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("token service: %s: %w", msg, domain.ErrNotMinter)
		case http.StatusConflict:
			return fmt.Errorf("token service: %s: %w", msg, domain.ErrInsufficientRewards)
		default:
			return fmt.Errorf("token service: %s (HTTP %d)", msg, resp.StatusCode)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package boltz is the hand-off client for on-chain swap payouts.
package boltz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrSwapFailed = errors.New("swap could not be created")

// ReverseSwapRequest asks the swap service to turn a Lightning payment into
// an on-chain transfer to the given address.
type ReverseSwapRequest struct {
	Wallet            string `json:"wallet"`
	Asset             string `json:"asset"`
	Amount            int64  `json:"amount"`
	Direction         string `json:"direction"`
	InstantSettlement bool   `json:"instant_settlement"`
	OnchainAddress    string `json:"onchain_address"`
}

// SwapClient creates reverse swaps and reports the external swap id used to
// correlate the asynchronous completion event.
type SwapClient interface {
	CreateReverseSwap(ctx context.Context, req ReverseSwapRequest) (string, error)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: time.Minute},
	}
}

func (c *Client) CreateReverseSwap(ctx context.Context, swapReq ReverseSwapRequest) (string, error) {
	swapReq.Direction = "send"
	swapReq.InstantSettlement = true

	// ATMs encode the asset pair with "temp" in place of the slash to
	// keep it path-safe.
	swapReq.Asset = strings.ReplaceAll(swapReq.Asset, "temp", "/")

	body, err := json.Marshal(swapReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/swap/reverse", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: swap service returned %d", ErrSwapFailed, resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", ErrSwapFailed
	}
	return result.ID, nil
}

// Package lightning talks to the funding source (an LNbits-compatible
// backend) for wallet lookups, API key authorization and invoice payment.
package lightning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrUnauthorized   = errors.New("invalid api key")
	ErrPaymentFailed  = errors.New("payment failed")
)

// Wallet is the funding-source view of a wallet. Balance is in satoshis.
type Wallet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Balance    int64  `json:"balance"`
	AdminKey   string `json:"adminkey"`
	InvoiceKey string `json:"inkey"`
}

// PayRequest asks the funding source to settle a bolt11 invoice from a
// wallet, capped at MaxSats. Tag and Extra end up on the resulting payment
// record and drive the confirmation feed's filtering.
type PayRequest struct {
	WalletID string            `json:"wallet_id"`
	Bolt11   string            `json:"bolt11"`
	MaxSats  int64             `json:"max_sats"`
	Tag      string            `json:"tag"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// PayResult is the settlement reference returned on success.
type PayResult struct {
	PaymentHash string `json:"payment_hash"`
}

// WalletReader fetches wallets by id or by API key.
type WalletReader interface {
	GetWallet(ctx context.Context, walletID string) (*Wallet, error)
	GetWalletByKey(ctx context.Context, apiKey string) (*Wallet, error)
}

// Payer executes invoice payments.
type Payer interface {
	Pay(ctx context.Context, req PayRequest) (*PayResult, error)
}

// Client is the HTTP implementation of WalletReader and Payer.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logrus.Entry
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Lightning payments can take a while to find a route; the
		// caller is expected to run Pay off the request path.
		http: &http.Client{Timeout: 2 * time.Minute},
		log:  logrus.WithField("component", "lightning"),
	}
}

func (c *Client) GetWallet(ctx context.Context, walletID string) (*Wallet, error) {
	var wallet Wallet
	err := c.do(ctx, http.MethodGet, "/api/v1/wallets/"+walletID, nil, &wallet)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *Client) GetWalletByKey(ctx context.Context, apiKey string) (*Wallet, error) {
	var wallet Wallet
	err := c.do(ctx, http.MethodGet, "/api/v1/wallets/key/"+apiKey, nil, &wallet)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *Client) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	var result PayResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments", req, &result); err != nil {
		return nil, err
	}
	if result.PaymentHash == "" {
		return nil, ErrPaymentFailed
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNotFound:
		return ErrWalletNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		// Never propagate downstream response bodies, they may carry
		// keys or internal detail.
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
		}).Error("funding source request failed")
		return fmt.Errorf("funding source returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

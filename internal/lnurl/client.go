package lnurl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fossa/internal/models"
)

var (
	ErrUnsupportedRequest = errors.New("not a valid payment request")
	ErrNotPayResponse     = errors.New("not a valid LNURL pay response")
	ErrAmountOutOfBounds  = errors.New("amount outside sendable range")
)

// Client resolves payout destinations into bolt11 invoices. ATMs accept a
// plain invoice, a bech32 lnurl-pay string, or a lightning address.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// ResolveInvoice turns a withdraw request into a bolt11 invoice for exactly
// amountMsat. Plain invoices pass through untouched; lnurl-pay strings and
// lightning addresses go through the two-step pay handshake.
func (c *Client) ResolveInvoice(ctx context.Context, request string, amountMsat int64) (string, error) {
	request = strings.TrimSpace(strings.ToLower(request))

	switch {
	case strings.HasPrefix(request, "lnbc") || strings.HasPrefix(request, "lntb") ||
		strings.HasPrefix(request, "lnbcrt") || strings.HasPrefix(request, "lnsb"):
		return request, nil

	case strings.HasPrefix(request, "lnurl1"):
		rawURL, err := Decode(request)
		if err != nil {
			return "", err
		}
		return c.executePayRequest(ctx, rawURL, amountMsat)

	case isLightningAddress(request):
		parts := strings.SplitN(request, "@", 2)
		rawURL := fmt.Sprintf("https://%s/.well-known/lnurlp/%s", parts[1], parts[0])
		return c.executePayRequest(ctx, rawURL, amountMsat)

	default:
		return "", ErrUnsupportedRequest
	}
}

func (c *Client) executePayRequest(ctx context.Context, rawURL string, amountMsat int64) (string, error) {
	var pay models.LnurlPayResponse
	if err := c.getJSON(ctx, rawURL, &pay); err != nil {
		return "", err
	}
	if pay.Tag != models.LnurlTagPay || pay.Callback == "" {
		return "", ErrNotPayResponse
	}
	if amountMsat < pay.MinSendable || amountMsat > pay.MaxSendable {
		return "", fmt.Errorf("%w: %d msat not in [%d, %d]",
			ErrAmountOutOfBounds, amountMsat, pay.MinSendable, pay.MaxSendable)
	}

	cb, err := url.Parse(pay.Callback)
	if err != nil {
		return "", err
	}
	q := cb.Query()
	q.Set("amount", strconv.FormatInt(amountMsat, 10))
	cb.RawQuery = q.Encode()

	var action models.LnurlPayActionResponse
	if err := c.getJSON(ctx, cb.String(), &action); err != nil {
		return "", err
	}
	if action.Pr == "" {
		return "", ErrNotPayResponse
	}
	return action.Pr, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lnurl endpoint returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isLightningAddress(s string) bool {
	if !strings.Contains(s, "@") {
		return false
	}
	_, err := mail.ParseAddress(s)
	return err == nil
}

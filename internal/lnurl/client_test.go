package lnurl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fossa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInvoicePassesThroughBolt11(t *testing.T) {
	c := NewClient()
	pr, err := c.ResolveInvoice(context.Background(), "LNBC1234abcd", 1000)
	require.NoError(t, err)
	assert.Equal(t, "lnbc1234abcd", pr)
}

func TestResolveInvoiceViaLnurlPay(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/lnurlp", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.LnurlPayResponse{
			Tag:         models.LnurlTagPay,
			Callback:    srv.URL + "/lnurlp/cb",
			MinSendable: 1000,
			MaxSendable: 100_000_000,
		})
	})
	mux.HandleFunc("/lnurlp/cb", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4000000", r.URL.Query().Get("amount"))
		json.NewEncoder(w).Encode(models.LnurlPayActionResponse{Pr: "lnbc40u1fake"})
	})

	encoded, err := Encode(srv.URL + "/lnurlp")
	require.NoError(t, err)

	c := NewClient()
	pr, err := c.ResolveInvoice(context.Background(), encoded, 4_000_000)
	require.NoError(t, err)
	assert.Equal(t, "lnbc40u1fake", pr)
}

func TestResolveInvoiceAmountOutOfBounds(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/lnurlp", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.LnurlPayResponse{
			Tag:         models.LnurlTagPay,
			Callback:    srv.URL + "/lnurlp/cb",
			MinSendable: 1000,
			MaxSendable: 2000,
		})
	})

	encoded, err := Encode(srv.URL + "/lnurlp")
	require.NoError(t, err)

	c := NewClient()
	_, err = c.ResolveInvoice(context.Background(), encoded, 4_000_000)
	assert.ErrorIs(t, err, ErrAmountOutOfBounds)
}

func TestResolveInvoiceRejectsUnknownScheme(t *testing.T) {
	c := NewClient()
	_, err := c.ResolveInvoice(context.Background(), "0x1234deadbeef", 1000)
	assert.ErrorIs(t, err, ErrUnsupportedRequest)
}

func TestParsePayload(t *testing.T) {
	encoded, err := Encode("https://example.com/api/v1/lnurl/dev42?p=cipher&iv=vector")
	require.NoError(t, err)

	got, err := ParsePayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, "dev42", got.DeviceID)
	assert.Equal(t, "cipher", got.Payload)
	assert.Equal(t, "vector", got.IV)
}

func TestParsePayloadMissingParam(t *testing.T) {
	encoded, err := Encode("https://example.com/api/v1/lnurl/dev42")
	require.NoError(t, err)

	_, err = ParsePayload(encoded)
	assert.ErrorIs(t, err, ErrMissingPayload)
}

package lnurl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	urls := []string{
		"https://example.com/api/v1/lnurl/dev1?p=abc",
		"http://localhost:8080/api/v1/lnurl/x1?p=payload&iv=vector",
	}

	for _, url := range urls {
		encoded, err := Encode(url)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "LNURL"))

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, url, decoded)
	}
}

func TestDecodeLightningPrefix(t *testing.T) {
	encoded, err := Encode("https://example.com/pay")
	require.NoError(t, err)

	decoded, err := Decode("lightning:" + encoded)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pay", decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-an-lnurl")
	assert.ErrorIs(t, err, ErrNotLnurl)
}

func TestDecodeRejectsWrongHrp(t *testing.T) {
	// A valid bech32 string with a non-lnurl prefix (bc1... address).
	_, err := Decode("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	assert.ErrorIs(t, err, ErrNotLnurl)
}

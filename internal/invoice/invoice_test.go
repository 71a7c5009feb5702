package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsGarbage(t *testing.T) {
	d := NewDecoder(nil)

	for _, pr := range []string{"", "notaninvoice", "lnbc1qqqq"} {
		_, err := d.Decode(pr)
		assert.ErrorIs(t, err, ErrInvalid, pr)
	}
}

func TestNetwork(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "regtest", "signet", ""} {
		params, err := Network(name)
		require.NoError(t, err)
		assert.NotNil(t, params)
	}

	_, err := Network("liquid")
	assert.Error(t, err)
}

// Package lnurl implements LNURL bech32 encoding and the outbound
// LNURL-pay client used to resolve payout destinations.
package lnurl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const humanReadablePart = "lnurl"

var ErrNotLnurl = errors.New("not a bech32 lnurl string")

// Decode turns a bech32 LNURL back into the plain URL it wraps.
func Decode(lnurl string) (string, error) {
	lnurl = strings.TrimPrefix(strings.ToLower(lnurl), "lightning:")

	hrp, data, err := bech32.DecodeNoLimit(lnurl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotLnurl, err)
	}
	if hrp != humanReadablePart {
		return "", fmt.Errorf("%w: incorrect hrp %q", ErrNotLnurl, hrp)
	}

	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}
	return string(converted), nil
}

// Encode wraps a plain URL in bech32 with the lnurl prefix, uppercased for
// better QR code density.
func Encode(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", err
	}
	encoded, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(encoded), nil
}

// Package invoice decodes bolt11 payment requests and enforces the
// exact-amount rule for payouts.
package invoice

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

var (
	ErrInvalid        = errors.New("invalid payment request")
	ErrNoAmount       = errors.New("payment request carries no amount")
	ErrAmountMismatch = errors.New("payment request amount does not match withdraw amount")
)

// Invoice is the subset of a decoded bolt11 invoice the payout flow needs.
type Invoice struct {
	MilliSat    int64
	PaymentHash string
}

// Decoder decodes bolt11 strings for a fixed network.
type Decoder struct {
	net *chaincfg.Params
}

func NewDecoder(net *chaincfg.Params) *Decoder {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	return &Decoder{net: net}
}

// Decode parses a bolt11 payment request.
func (d *Decoder) Decode(pr string) (*Invoice, error) {
	inv, err := zpay32.Decode(pr, d.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if inv.PaymentHash == nil {
		return nil, ErrInvalid
	}

	var msat int64
	if inv.MilliSat != nil {
		msat = int64(*inv.MilliSat)
	}
	return &Invoice{
		MilliSat:    msat,
		PaymentHash: hex.EncodeToString(inv.PaymentHash[:]),
	}, nil
}

// DecodeExpecting parses a payment request and rejects it unless it asks
// for exactly amountMsat. Zero-amount invoices are never accepted.
func (d *Decoder) DecodeExpecting(pr string, amountMsat int64) (*Invoice, error) {
	inv, err := d.Decode(pr)
	if err != nil {
		return nil, err
	}
	if inv.MilliSat == 0 {
		return nil, ErrNoAmount
	}
	if inv.MilliSat != amountMsat {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAmountMismatch, inv.MilliSat, amountMsat)
	}
	return inv, nil
}

// Network maps a configured network name onto chain params.
func Network(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

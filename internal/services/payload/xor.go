package payload

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire layout of the XOR-stream format, after base64 transport decoding:
//
//	[version:1][nonce_len:1][nonce][payload_len:1][payload][hmac:8..32]
//
// The trailing HMAC-SHA256 covers "Data:" plus every byte before it and may
// be truncated down to 8 bytes. The payload body is XORed against a
// per-message keystream of HMAC-SHA256(key, "Round secret:"+nonce).
const (
	xorVersion    = 1
	minNonceLen   = 8
	maxPayloadLen = 32
	minMacLen     = 8
)

var (
	macPrefix       = []byte("Data:")
	keystreamPrefix = []byte("Round secret:")
)

type xorDecoder struct{}

func (d *xorDecoder) Decode(req Request) (*Decoded, error) {
	blob, err := decodeBase64(req.Payload)
	if err != nil {
		return nil, err
	}
	key := []byte(req.Key)

	if len(blob) < 2 {
		return nil, ErrTruncated
	}
	if blob[0] != xorVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, blob[0])
	}

	nonceLen := int(blob[1])
	if nonceLen < minNonceLen {
		return nil, ErrNonceTooShort
	}
	off := 2
	if len(blob) < off+nonceLen+1 {
		return nil, ErrTruncated
	}
	nonce := blob[off : off+nonceLen]
	off += nonceLen

	payloadLen := int(blob[off])
	off++
	if payloadLen > maxPayloadLen {
		return nil, ErrTooLong
	}
	if len(blob) < off+payloadLen {
		return nil, ErrTruncated
	}
	body := blob[off : off+payloadLen]
	off += payloadLen

	tag := blob[off:]
	if len(tag) < minMacLen {
		return nil, ErrTruncated
	}
	if len(tag) > sha256.Size {
		return nil, ErrTooLong
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(macPrefix)
	mac.Write(blob[:len(blob)-len(tag)])
	if !hmac.Equal(tag, mac.Sum(nil)[:len(tag)]) {
		return nil, ErrBadSignature
	}

	stream := hmac.New(sha256.New, key)
	stream.Write(keystreamPrefix)
	stream.Write(nonce)
	keystream := stream.Sum(nil)

	plain := make([]byte, len(body))
	for i := range body {
		plain[i] = body[i] ^ keystream[i]
	}

	r := bytes.NewReader(plain)
	pin, err := readVarField(r)
	if err != nil {
		return nil, err
	}
	amount, err := readVarField(r)
	if err != nil {
		return nil, err
	}

	return &Decoded{Pin: int(pin), Amount: float64(amount)}, nil
}

// readVarField reads one length-prefixed big-endian integer field.
func readVarField(r *bytes.Reader) (uint64, error) {
	l, err := r.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	if l == 0 || int(l) > 8 {
		return 0, ErrBadEncoding
	}
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf[8-int(l):]); err != nil {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint64(buf), nil
}

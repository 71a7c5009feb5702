package payload

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// AES key derivation parameters. The 256-bit cipher key is stretched from
// the device secret with PBKDF2-SHA256 over a fixed salt; devices must use
// the same derivation when encrypting.
const (
	aesKeySalt = "fossa/payload"
	aesKeyIter = 4096
	aesKeyLen  = 32
)

const (
	minPin = 1000
	maxPin = 9999
)

type aesDecoder struct{}

func (d *aesDecoder) Decode(req Request) (*Decoded, error) {
	iv, err := decodeBase64(req.IV)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, ErrBadEncoding
	}

	ct, err := decodeBase64(req.Payload)
	if err != nil {
		return nil, err
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, ErrBadEncoding
	}

	key := pbkdf2.Key([]byte(req.Key), []byte(aesKeySalt), aesKeyIter, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	// The plaintext is "<pin>:<amount>" padded out with NUL bytes.
	if i := bytes.IndexByte(plain, 0); i >= 0 {
		plain = plain[:i]
	}
	return parsePinAmount(string(plain))
}

func parsePinAmount(msg string) (*Decoded, error) {
	parts := strings.SplitN(msg, ":", 2)
	if len(parts) != 2 {
		return nil, ErrBadEncoding
	}

	pin, err := strconv.Atoi(parts[0])
	if err != nil || pin < minPin || pin > maxPin {
		return nil, ErrBadPin
	}

	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || amount < 0 {
		return nil, ErrBadAmount
	}

	return &Decoded{Pin: pin, Amount: amount}, nil
}

// decodeBase64 decodes URL-safe base64, right-padding with '=' to a multiple
// of four characters first. Devices strip padding to keep QR codes short.
func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrBadEncoding
	}
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadEncoding
	}
	return b, nil
}

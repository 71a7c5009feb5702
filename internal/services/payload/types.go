package payload

import "fmt"

// Decoded is the authenticated plaintext extracted from a device payload.
// It is transient and never persisted as-is.
type Decoded struct {
	Pin    int
	Amount float64
}

// Format selects which wire format a deployment's devices speak. The two
// formats are mutually incompatible and structurally permissive enough that
// auto-detection would produce false positives, so the format is fixed by
// configuration rather than sniffed per request.
type Format string

const (
	// FormatXor is the authenticated XOR-stream format.
	FormatXor Format = "xor"

	// FormatAes is the AES-CBC envelope format.
	FormatAes Format = "aes"
)

// Request carries one encoded payload plus the device secret needed to open
// it. IV is only meaningful for the AES format, where it travels as a
// separate query parameter next to the ciphertext.
type Request struct {
	Payload string
	IV      string
	Key     string
}

// Decoder turns an encoded device payload into its authenticated plaintext.
type Decoder interface {
	Decode(req Request) (*Decoded, error)
}

// NewDecoder returns the decoder for the configured wire format.
func NewDecoder(format Format) (Decoder, error) {
	switch format {
	case FormatXor:
		return &xorDecoder{}, nil
	case FormatAes:
		return &aesDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

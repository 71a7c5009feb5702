package lnurl

import (
	"errors"
	"net/url"
	"strings"
)

// Payload is the device request recovered from a scanned LNURL: the device
// id from the URL path plus the encrypted payload (and AES IV, when the
// deployment uses the AES format) from the query string.
type Payload struct {
	DeviceID string
	Payload  string
	IV       string
}

var (
	ErrMissingPayload = errors.New("missing 'p' parameter")
	ErrMissingDevice  = errors.New("missing device id in path")
)

// ParsePayload decodes an LNURL and extracts the device request from it.
func ParsePayload(lnurl string) (*Payload, error) {
	raw, err := Decode(lnurl)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	p := q.Get("p")
	if p == "" {
		return nil, ErrMissingPayload
	}

	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	deviceID := parts[len(parts)-1]
	if deviceID == "" {
		return nil, ErrMissingDevice
	}

	return &Payload{
		DeviceID: deviceID,
		Payload:  p,
		IV:       q.Get("iv"),
	}, nil
}

package models

import (
	"encoding/json"
	"time"
)

// Device is a provisioned point-of-sale / ATM unit. The shared Key is the
// secret the device uses to encrypt its payout payloads.
type Device struct {
	ID        string  `gorm:"primarykey" json:"id"`
	Key       string  `gorm:"not null" json:"key"`
	Title     string  `gorm:"not null" json:"title"`
	Wallet    string  `gorm:"not null;index" json:"wallet"`
	Currency  string  `gorm:"not null;default:'sat'" json:"currency"`
	Profit    float64 `gorm:"default:0" json:"profit"`
	Boltz     bool    `gorm:"default:false" json:"boltz"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDeviceRequest is the DTO for device create/update calls.
type CreateDeviceRequest struct {
	Title    string  `json:"title"`
	Wallet   string  `json:"wallet"`
	Currency string  `json:"currency"`
	Profit   float64 `json:"profit"`
	Boltz    bool    `json:"boltz"`
}

// LnurlPayMetadata renders the metadata array LNURL-pay clients expect.
func (d *Device) LnurlPayMetadata() string {
	meta, _ := json.Marshal([][2]string{{"text/plain", d.Title}})
	return string(meta)
}

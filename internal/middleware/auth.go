// Package middleware provides the wallet API-key authentication used by the
// device and ATM admin endpoints.
package middleware

import (
	"fossa/internal/lightning"
	"fossa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// WalletLocal is the fiber.Ctx locals key the authenticated wallet is
// stored under.
const WalletLocal = "wallet"

// AuthMiddleware resolves the X-Api-Key header to a wallet. The invoice
// key grants read access, the admin key everything.
type AuthMiddleware struct {
	wallets lightning.WalletReader
	log     *logrus.Entry
}

func NewAuthMiddleware(wallets lightning.WalletReader) *AuthMiddleware {
	if wallets == nil {
		panic("wallet reader is required")
	}
	return &AuthMiddleware{
		wallets: wallets,
		log:     logrus.WithField("component", "auth"),
	}
}

// RequireKey accepts either of the wallet's keys.
func (m *AuthMiddleware) RequireKey(c *fiber.Ctx) error {
	wallet, err := m.authenticate(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid api key")
	}
	c.Locals(WalletLocal, wallet)
	return c.Next()
}

// RequireAdminKey accepts only the wallet's admin key.
func (m *AuthMiddleware) RequireAdminKey(c *fiber.Ctx) error {
	wallet, err := m.authenticate(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid api key")
	}
	if c.Get("X-Api-Key") != wallet.AdminKey {
		return utils.Forbidden(c, "admin key required")
	}
	c.Locals(WalletLocal, wallet)
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*lightning.Wallet, error) {
	key := c.Get("X-Api-Key")
	if key == "" {
		return nil, fiber.ErrUnauthorized
	}
	wallet, err := m.wallets.GetWalletByKey(c.Context(), key)
	if err != nil {
		m.log.WithError(err).Debug("api key rejected")
		return nil, err
	}
	return wallet, nil
}

// Wallet returns the authenticated wallet stored by the middleware.
func Wallet(c *fiber.Ctx) *lightning.Wallet {
	wallet, _ := c.Locals(WalletLocal).(*lightning.Wallet)
	return wallet
}

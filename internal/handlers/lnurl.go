// Package handlers holds the Fiber HTTP handlers. They stay thin, all
// behavior lives in the services.
package handlers

import (
	"errors"

	"fossa/internal/invoice"
	"fossa/internal/services/ledger"
	"fossa/internal/services/payload"
	"fossa/internal/services/pricing"
	"fossa/internal/services/withdraw"
	"fossa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type LnurlHandler struct {
	withdraw *withdraw.Service
	log      *logrus.Entry
}

func NewLnurlHandler(withdrawSvc *withdraw.Service) *LnurlHandler {
	return &LnurlHandler{
		withdraw: withdrawSvc,
		log:      logrus.WithField("component", "lnurl_handler"),
	}
}

// Params serves the first phase of the withdraw handshake. Devices point
// their QR codes at this endpoint.
func (h *LnurlHandler) Params(c *fiber.Ctx) error {
	deviceID := c.Params("device_id")
	p := c.Query("p")
	if p == "" {
		return utils.LnurlError(c, "missing payload")
	}

	resp, err := h.withdraw.Params(c.Context(), deviceID, p, c.Query("iv"))
	if err != nil {
		h.log.WithError(err).WithField("device_id", deviceID).Info("challenge rejected")
		return utils.LnurlError(c, lnurlReason(err))
	}
	return utils.Success(c, resp)
}

// Callback serves the second phase: the wallet posts its invoice here.
func (h *LnurlHandler) Callback(c *fiber.Ctx) error {
	deviceID := c.Params("device_id")
	k1 := c.Query("k1")
	pr := c.Query("pr")
	if k1 == "" || pr == "" {
		return utils.LnurlError(c, "missing k1 or pr")
	}

	if err := h.withdraw.Callback(c.Context(), deviceID, k1, pr); err != nil {
		h.log.WithError(err).WithField("k1", k1).Info("callback rejected")
		return utils.LnurlError(c, lnurlReason(err))
	}
	return utils.LnurlSuccess(c)
}

// lnurlReason maps service errors onto wallet-facing reasons. Unknown
// errors get a generic reason, internals are never leaked onto devices.
func lnurlReason(err error) string {
	switch {
	case errors.Is(err, withdraw.ErrDeviceNotFound):
		return "device not found"
	case errors.Is(err, ledger.ErrNotFound):
		return "record not found"
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return "payment already claimed"
	case errors.Is(err, ledger.ErrAlreadyPending):
		return "payment pending, contact support"
	case errors.Is(err, invoice.ErrAmountMismatch), errors.Is(err, invoice.ErrNoAmount):
		return "invoice amount does not match withdrawal"
	case errors.Is(err, invoice.ErrInvalid):
		return "invalid invoice"
	case errors.Is(err, withdraw.ErrInsufficientFunds):
		return "funds temporarily unavailable, try again later"
	case errors.Is(err, pricing.ErrRateUnavailable):
		return "exchange rate unavailable, try again later"
	case errors.Is(err, payload.ErrBadSignature),
		errors.Is(err, payload.ErrBadVersion),
		errors.Is(err, payload.ErrTruncated),
		errors.Is(err, payload.ErrNonceTooShort),
		errors.Is(err, payload.ErrTooLong),
		errors.Is(err, payload.ErrBadEncoding),
		errors.Is(err, payload.ErrBadPin),
		errors.Is(err, payload.ErrBadAmount):
		return "could not decode payload"
	default:
		return "withdrawal failed, try again later"
	}
}

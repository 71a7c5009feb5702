package handlers

import (
	"errors"

	"fossa/internal/middleware"
	"fossa/internal/models"
	"fossa/internal/repositories"
	"fossa/internal/services/device"
	"fossa/internal/services/ledger"
	"fossa/internal/services/withdraw"
	"fossa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AtmHandler is the operator-facing payment admin surface plus the direct
// ATM payout endpoints.
type AtmHandler struct {
	devices  *device.Service
	ledger   *ledger.Service
	payments repositories.PaymentRepository
	withdraw *withdraw.Service
	log      *logrus.Entry
}

func NewAtmHandler(
	devices *device.Service,
	ledgerSvc *ledger.Service,
	payments repositories.PaymentRepository,
	withdrawSvc *withdraw.Service,
) *AtmHandler {
	return &AtmHandler{
		devices:  devices,
		ledger:   ledgerSvc,
		payments: payments,
		withdraw: withdrawSvc,
		log:      logrus.WithField("component", "atm_handler"),
	}
}

// List returns the payment records of all devices owned by the caller's
// wallet. Stale in-flight records are reset first so the listing reflects
// what is actually claimable.
func (h *AtmHandler) List(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	if _, err := h.ledger.ResetStale(c.Context()); err != nil {
		h.log.WithError(err).Warn("stale reset failed during listing")
	}

	devices, err := h.devices.List(c.Context(), wallet.ID)
	if err != nil {
		return utils.InternalError(c, "could not list devices")
	}

	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}

	payments, err := h.payments.ListByDevices(c.Context(), ids)
	if err != nil {
		return utils.InternalError(c, "could not list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return utils.Success(c, payments)
}

// Delete purges a payment record. Only records of devices owned by the
// caller's wallet can be removed.
func (h *AtmHandler) Delete(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	record, err := h.ledger.Get(c.Context(), c.Params("payment_id"))
	if errors.Is(err, ledger.ErrNotFound) {
		return utils.NotFound(c, "payment not found")
	}
	if err != nil {
		return utils.InternalError(c, "could not load payment")
	}

	owner, err := h.devices.Get(c.Context(), record.DeviceID)
	if err != nil || owner.Wallet != wallet.ID {
		return utils.NotFound(c, "payment not found")
	}

	if err := h.payments.Delete(c.Context(), record.ID); err != nil {
		return utils.InternalError(c, "could not delete payment")
	}
	return utils.Success(c, fiber.Map{"deleted": true})
}

// PayLightning settles a scanned ATM LNURL against a caller-supplied
// destination: a bolt11 invoice, an LNURL-pay string or a lightning address.
func (h *AtmHandler) PayLightning(c *fiber.Ctx) error {
	var req struct {
		Lnurl          string `json:"lnurl"`
		PaymentRequest string `json:"payment_request"`
	}
	if err := c.BodyParser(&req); err != nil || req.Lnurl == "" || req.PaymentRequest == "" {
		return utils.BadRequest(c, "lnurl and payment_request are required")
	}

	record, err := h.withdraw.PayLightning(c.Context(), req.Lnurl, req.PaymentRequest)
	if err != nil {
		return h.mapPayoutError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"payment_hash": record.PaymentHash,
		"sats":         record.Sats,
	})
}

// PayOnchain delegates a scanned ATM LNURL to the swap service for an
// on-chain payout.
func (h *AtmHandler) PayOnchain(c *fiber.Ctx) error {
	var req struct {
		Lnurl   string `json:"lnurl"`
		Asset   string `json:"asset"`
		Address string `json:"address"`
	}
	if err := c.BodyParser(&req); err != nil || req.Lnurl == "" || req.Address == "" {
		return utils.BadRequest(c, "lnurl and address are required")
	}

	swapID, err := h.withdraw.PayOnchain(c.Context(), req.Lnurl, req.Asset, req.Address)
	if err != nil {
		return h.mapPayoutError(c, err)
	}
	return utils.Success(c, fiber.Map{"swap_id": swapID})
}

func (h *AtmHandler) mapPayoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, withdraw.ErrDeviceNotFound), errors.Is(err, ledger.ErrNotFound):
		return utils.NotFound(c, "device or payment not found")
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return utils.BadRequest(c, "payment already claimed")
	case errors.Is(err, ledger.ErrAlreadyPending):
		return utils.BadRequest(c, "payment pending, contact support")
	case errors.Is(err, withdraw.ErrInsufficientFunds):
		return utils.BadRequest(c, "insufficient wallet funds")
	case errors.Is(err, withdraw.ErrSwapNotSupported):
		return utils.BadRequest(c, "device does not allow onchain payout")
	case errors.Is(err, withdraw.ErrExecutionFailed):
		return utils.InternalError(c, "payout failed, record released for retry")
	default:
		return utils.BadRequest(c, err.Error())
	}
}

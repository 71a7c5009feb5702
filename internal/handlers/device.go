package handlers

import (
	"errors"
	"fmt"

	"fossa/internal/lnurl"
	"fossa/internal/middleware"
	"fossa/internal/models"
	"fossa/internal/services/device"
	"fossa/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DeviceHandler struct {
	devices         *device.Service
	callbackBaseURL string
}

func NewDeviceHandler(devices *device.Service, callbackBaseURL string) *DeviceHandler {
	return &DeviceHandler{
		devices:         devices,
		callbackBaseURL: callbackBaseURL,
	}
}

func (h *DeviceHandler) Create(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	var req models.CreateDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	created, err := h.devices.Create(c.Context(), wallet.ID, &req)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, h.withLnurl(created))
}

func (h *DeviceHandler) Update(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	var req models.CreateDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	updated, err := h.devices.Update(c.Context(), wallet.ID, c.Params("device_id"), &req)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, h.withLnurl(updated))
}

func (h *DeviceHandler) Get(c *fiber.Ctx) error {
	found, err := h.devices.Get(c.Context(), c.Params("device_id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, h.withLnurl(found))
}

func (h *DeviceHandler) List(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	devices, err := h.devices.List(c.Context(), wallet.ID)
	if err != nil {
		return utils.InternalError(c, "could not list devices")
	}

	out := make([]fiber.Map, 0, len(devices))
	for i := range devices {
		out = append(out, h.withLnurl(&devices[i]))
	}
	return utils.Success(c, out)
}

func (h *DeviceHandler) Delete(c *fiber.Ctx) error {
	wallet := middleware.Wallet(c)
	if wallet == nil {
		return utils.Unauthorized(c, "wallet not resolved")
	}

	if err := h.devices.Delete(c.Context(), wallet.ID, c.Params("device_id")); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"deleted": true})
}

// LnurlEncode bech32-encodes an arbitrary URL, used by device setup tools.
func (h *DeviceHandler) LnurlEncode(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return utils.BadRequest(c, "url is required")
	}

	encoded, err := lnurl.Encode(req.URL)
	if err != nil {
		return utils.BadRequest(c, "url could not be encoded")
	}
	return utils.Success(c, fiber.Map{"lnurl": encoded})
}

// withLnurl decorates a device with the LNURL its firmware should be
// configured with.
func (h *DeviceHandler) withLnurl(d *models.Device) fiber.Map {
	endpoint := fmt.Sprintf("%s/api/v1/lnurl/%s", h.callbackBaseURL, d.ID)
	encoded, err := lnurl.Encode(endpoint)
	if err != nil {
		encoded = ""
	}
	return fiber.Map{
		"device": d,
		"lnurl":  encoded,
	}
}

func (h *DeviceHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, device.ErrNotFound):
		return utils.NotFound(c, "device not found")
	case errors.Is(err, device.ErrTitleMissing), errors.Is(err, device.ErrBadProfit):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalError(c, "device operation failed")
	}
}

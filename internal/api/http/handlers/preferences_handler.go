package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roomswap-service/internal/api/dto"
	"github.com/spec-kit/roomswap-service/internal/service"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// PreferencesHandler serves the preference registry.
type PreferencesHandler struct {
	preferences *service.PreferenceService
	ledger      *service.LedgerService
}

// NewPreferencesHandler constructs handler.
func NewPreferencesHandler(preferences *service.PreferenceService, ledger *service.LedgerService) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences, ledger: ledger}
}

// Query GET /api/preferences?q=.
func (h *PreferencesHandler) Query(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	prefs, err := h.preferences.Query(c.UserContext(), principal.ID(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPreferenceList(prefs)})
}

// ListOwn GET /api/preferences/mine.
func (h *PreferencesHandler) ListOwn(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	prefs, err := h.preferences.ListOwn(c.UserContext(), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPreferenceList(prefs)})
}

// Post POST /api/preferences.
func (h *PreferencesHandler) Post(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.PreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pref, err := h.preferences.Post(c.UserContext(), principal.ID(), req.Available, req.Needed)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewPreferenceResponse(pref)})
}

// Update PUT /api/preferences/:id.
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.PreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pref, err := h.preferences.Update(c.UserContext(), c.Params("id"), principal.ID(), req.Available, req.Needed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPreferenceResponse(pref)})
}

// Delete DELETE /api/preferences/:id.
func (h *PreferencesHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	if err := h.preferences.Delete(c.UserContext(), c.Params("id"), principal.ID()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Propose POST /api/preferences/:id/requests.
func (h *PreferencesHandler) Propose(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	req, err := h.ledger.Propose(c.UserContext(), c.Params("id"), principal.ID())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSwapRequestResponse(req)})
}

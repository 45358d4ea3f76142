package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roomswap-service/internal/api/dto"
	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/service"
)

// RequestsHandler serves the request ledger and commits.
type RequestsHandler struct {
	ledger  *service.LedgerService
	commits *service.CommitService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(ledger *service.LedgerService, commits *service.CommitService) *RequestsHandler {
	return &RequestsHandler{ledger: ledger, commits: commits}
}

// ProposeDirect POST /api/users/:id/requests.
func (h *RequestsHandler) ProposeDirect(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	req, err := h.ledger.ProposeDirect(c.UserContext(), c.Params("id"), principal.ID())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSwapRequestResponse(req)})
}

// Incoming GET /api/requests/incoming.
func (h *RequestsHandler) Incoming(c *fiber.Ctx) error {
	return h.list(c, h.ledger.Incoming)
}

// Outgoing GET /api/requests/outgoing.
func (h *RequestsHandler) Outgoing(c *fiber.Ctx) error {
	return h.list(c, h.ledger.Outgoing)
}

// History GET /api/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	return h.list(c, h.commits.History)
}

// Reject POST /api/requests/:id/reject.
func (h *RequestsHandler) Reject(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	req, err := h.ledger.Reject(c.UserContext(), c.Params("id"), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSwapRequestResponse(req)})
}

// Cancel DELETE /api/requests/:id.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	if err := h.ledger.Cancel(c.UserContext(), c.Params("id"), principal.ID()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Commit POST /api/requests/:id/commit.
func (h *RequestsHandler) Commit(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	result, err := h.commits.Commit(c.UserContext(), c.Params("id"), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommitResponse(result)})
}

func (h *RequestsHandler) list(c *fiber.Ctx, load func(ctx context.Context, userID string) ([]domain.SwapRequest, error)) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	reqs, err := load(c.UserContext(), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSwapRequestList(reqs)})
}

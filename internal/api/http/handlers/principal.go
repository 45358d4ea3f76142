package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roomswap-service/internal/auth"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

func principalFrom(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	return principal, nil
}

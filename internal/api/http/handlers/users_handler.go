package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roomswap-service/internal/api/dto"
	"github.com/spec-kit/roomswap-service/internal/service"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// UsersHandler exposes auth endpoints for residents.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		CollegeID:  req.CollegeID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		RoomNumber: req.RoomNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(authPayload(result))
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Password == "" {
		return apperrors.NewValidationError("name and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Name, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authPayload(result))
}

// Me handles GET /api/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(principal.User)})
}

func authPayload(result *service.AuthResult) fiber.Map {
	return fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(result.User),
			"auth": dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	}
}

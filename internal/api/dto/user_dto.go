package dto

import (
	"time"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// UserRegisterRequest payload for new residents.
type UserRegisterRequest struct {
	CollegeID  string `json:"college_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	RoomNumber string `json:"room_number"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a resident.
type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	RoomNumber string `json:"room_number"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, RoomNumber: u.RoomNumber}
}

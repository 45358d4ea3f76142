package domain

import "time"

// User is a dorm resident. RoomNumber is the only field the swap core mutates.
type User struct {
	ID           string
	CollegeID    string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	RoomNumber   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

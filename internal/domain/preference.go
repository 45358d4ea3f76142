package domain

import (
	"strings"
	"time"
)

// WildcardRoom in Needed means any room is acceptable.
const WildcardRoom = "ANY"

// MaxRoomCodeLength bounds available/needed values.
const MaxRoomCodeLength = 20

// Preference is a resident's declared offer (Available) and want (Needed).
type Preference struct {
	ID        string
	OwnerID   string
	Available string
	Needed    string
	// Synthetic marks rows created on behalf of a direct request rather than by the owner.
	Synthetic bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeRoom trims and upper-cases a room code.
func NormalizeRoom(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

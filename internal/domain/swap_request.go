package domain

import "time"

// SwapStatus enumerates lifecycle states for swap requests.
type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusCommitted SwapStatus = "committed"
	SwapStatusRejected  SwapStatus = "rejected"
)

// Terminal reports whether no transition leaves the status.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusCommitted || s == SwapStatusRejected
}

// SwapRequest is a directed proposal from RequesterID to the owner of PreferenceID.
type SwapRequest struct {
	ID           string
	PreferenceID string // empty once the preference is deleted
	OwnerID      string
	RequesterID  string
	Status       SwapStatus
	// FromRoom and ToRoom snapshot the requester's and owner's rooms at proposal time.
	FromRoom   string
	ToRoom     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Involves reports whether userID is either party.
func (r *SwapRequest) Involves(userID string) bool {
	return r.OwnerID == userID || r.RequesterID == userID
}

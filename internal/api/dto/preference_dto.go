package dto

import (
	"time"

	"github.com/spec-kit/roomswap-service/internal/domain"
)

// PreferenceRequest payload for posting or editing a preference.
type PreferenceRequest struct {
	Available string `json:"available"`
	Needed    string `json:"needed"`
}

// PreferenceResponse describes a preference.
type PreferenceResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Available string    `json:"available"`
	Needed    string    `json:"needed"`
	Synthetic bool      `json:"synthetic"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPreferenceResponse maps a domain preference.
func NewPreferenceResponse(p *domain.Preference) PreferenceResponse {
	return PreferenceResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Available: p.Available,
		Needed:    p.Needed,
		Synthetic: p.Synthetic,
		CreatedAt: p.CreatedAt,
	}
}

// NewPreferenceList maps a slice, never returning nil.
func NewPreferenceList(prefs []domain.Preference) []PreferenceResponse {
	out := make([]PreferenceResponse, 0, len(prefs))
	for i := range prefs {
		out = append(out, NewPreferenceResponse(&prefs[i]))
	}
	return out
}

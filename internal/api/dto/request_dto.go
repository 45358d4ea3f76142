package dto

import (
	"time"

	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/service"
)

// SwapRequestResponse describes a ledger entry.
type SwapRequestResponse struct {
	ID           string            `json:"id"`
	PreferenceID string            `json:"preference_id,omitempty"`
	OwnerID      string            `json:"owner_id"`
	RequesterID  string            `json:"requester_id"`
	Status       domain.SwapStatus `json:"status"`
	FromRoom     string            `json:"from_room"`
	ToRoom       string            `json:"to_room"`
	CreatedAt    time.Time         `json:"created_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`
}

// NewSwapRequestResponse maps a domain request.
func NewSwapRequestResponse(r *domain.SwapRequest) SwapRequestResponse {
	return SwapRequestResponse{
		ID:           r.ID,
		PreferenceID: r.PreferenceID,
		OwnerID:      r.OwnerID,
		RequesterID:  r.RequesterID,
		Status:       r.Status,
		FromRoom:     r.FromRoom,
		ToRoom:       r.ToRoom,
		CreatedAt:    r.CreatedAt,
		ResolvedAt:   r.ResolvedAt,
	}
}

// NewSwapRequestList maps a slice, never returning nil.
func NewSwapRequestList(reqs []domain.SwapRequest) []SwapRequestResponse {
	out := make([]SwapRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewSwapRequestResponse(&reqs[i]))
	}
	return out
}

// CommitResponse describes a committed swap.
type CommitResponse struct {
	Request     SwapRequestResponse `json:"request"`
	Requester   UserResponse        `json:"requester"`
	Owner       UserResponse        `json:"owner"`
	Invalidated []string            `json:"invalidated_request_ids"`
}

// NewCommitResponse maps a commit result.
func NewCommitResponse(r *service.CommitResult) CommitResponse {
	invalidated := r.Invalidated
	if invalidated == nil {
		invalidated = []string{}
	}
	return CommitResponse{
		Request:     NewSwapRequestResponse(&r.Request),
		Requester:   NewUserResponse(&r.Requester),
		Owner:       NewUserResponse(&r.Owner),
		Invalidated: invalidated,
	}
}

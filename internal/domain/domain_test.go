package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoom(t *testing.T) {
	assert.Equal(t, "B-205", NormalizeRoom("  b-205 "))
	assert.Equal(t, "", NormalizeRoom("   "))
}

func TestSwapStatusTerminal(t *testing.T) {
	assert.False(t, SwapStatusPending.Terminal())
	assert.True(t, SwapStatusCommitted.Terminal())
	assert.True(t, SwapStatusRejected.Terminal())
}

func TestSwapRequestInvolves(t *testing.T) {
	req := SwapRequest{OwnerID: "a", RequesterID: "b"}
	assert.True(t, req.Involves("a"))
	assert.True(t, req.Involves("b"))
	assert.False(t, req.Involves("c"))
}

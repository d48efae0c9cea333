package presence

import (
	"context"

	"github.com/Dave1206/Memory-App-sub000/internal/hub"
)

// RegistryChecker answers presence straight from the in-memory connection
// registry.
type RegistryChecker struct {
	registry *hub.Registry
}

func NewRegistryChecker(reg *hub.Registry) *RegistryChecker {
	return &RegistryChecker{registry: reg}
}

func (c *RegistryChecker) IsOnline(_ context.Context, userID uint) bool {
	return c.registry.IsOnline(userID)
}

// Ensure interface is satisfied at compile time.
var _ OnlineChecker = (*RegistryChecker)(nil)

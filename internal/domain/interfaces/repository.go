package interfaces

import (
	"context"

	"netstate-agent/internal/domain/nm"
)

// ProfileRepository stores the last compiled profiles of every node
type ProfileRepository interface {
	// ListProfiles returns the profiles stored for a node
	ListProfiles(ctx context.Context, nodeName string) ([]*nm.Connection, error)

	// SaveProfiles inserts or replaces the given profiles of a node
	SaveProfiles(ctx context.Context, nodeName string, profiles []*nm.Connection) error

	// DeleteProfiles removes the given profiles of a node
	DeleteProfiles(ctx context.Context, nodeName string, keys []nm.ProfileKey) error
}

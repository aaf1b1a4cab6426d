package interfaces

import (
	"context"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/domain/nm"
)

// DesiredStateSource supplies the requested network state
type DesiredStateSource interface {
	// Load returns the desired state document, parsed with a closed schema
	Load(ctx context.Context) (*entities.NetworkState, error)
}

// StateProvider supplies a snapshot of the state presently in effect
type StateProvider interface {
	// CurrentState queries the host and returns its interfaces
	CurrentState(ctx context.Context) (entities.Interfaces, error)
}

// ProfileApplier pushes compiled profiles to the network service
type ProfileApplier interface {
	// Apply writes and activates the given profiles. Controllers are
	// activated before their ports.
	Apply(ctx context.Context, profiles []*nm.Connection) error

	// Delete deactivates and removes the profiles with the given keys.
	// Missing profiles are not an error.
	Delete(ctx context.Context, keys []nm.ProfileKey) error

	// Rollback undoes every Apply and Delete since the last Commit
	Rollback(ctx context.Context) error

	// Commit forgets the rollback journal
	Commit()
}

package storage

import (
	"github.com/cuemby/osd-activate/pkg/types"
)

// Store defines the interface for the activation ledger
type Store interface {
	// CreateActivation records a finished run. An empty ID is assigned.
	CreateActivation(activation *types.Activation) error

	// ListActivations returns every recorded run, oldest first
	ListActivations() ([]*types.Activation, error)

	// ListActivationsByOSD returns the runs that produced cluster/id, oldest first
	ListActivationsByOSD(cluster, id string) ([]*types.Activation, error)

	// Utility
	Close() error
}

// Package adapter defines the event publication boundary.
//
// Adapters push detection events to downstream systems (shop floor
// dashboards, MES integrations). The engine owns adapter lifecycle;
// users provide configuration only.
package adapter

import (
	"context"

	"github.com/filaform/filatag/types"
)

// Adapter publishes detection events to a downstream system.
type Adapter interface {
	// Publish sends one event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *types.EventEnvelope) error

	// Close releases adapter resources.
	Close() error
}

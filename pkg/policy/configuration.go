// Package policy implements the visibility decision engine: a composable
// predicate over ownership, roles, explicit grants, group-restricted
// category membership and the derived listable flag.
//
// Decisions are pure with respect to the request: the principal is loaded
// once, the configuration is immutable, and evaluation has no side effects,
// so concurrent evaluation over the same objects needs no locking.
package policy

import "github.com/mediacms-io/mediacms-go/pkg/media"

// Configuration is the immutable deployment policy passed to the engine at
// construction. It is never read from ambient global state, so tests can
// exercise every combination deterministically.
type Configuration struct {
	// RBACEnabled turns on group-restricted categories: membership in a
	// media object's category then grants view access.
	RBACEnabled bool

	// Workflow is the deployment default publication workflow. When it is
	// public, ordinary members may publish without an editor role.
	Workflow media.Workflow

	// MaxItemsPerPlaylist caps playlist size; add_to_playlist skips
	// objects once a playlist is full.
	MaxItemsPerPlaylist int

	// SharedFanoutCap bounds the candidate set for "shared with me" and
	// RBAC-expanded listing views.
	SharedFanoutCap int

	// ResultCap bounds listing and search result sets before pagination.
	ResultCap int

	// AnonymousActions is the fixed set of actions an anonymous principal
	// may perform on any object it can view.
	AnonymousActions map[string]bool
}

// DefaultConfiguration returns the stock deployment policy: private
// workflow, RBAC off, 100-item playlists, 1000-row caps.
func DefaultConfiguration() Configuration {
	return Configuration{
		RBACEnabled:         false,
		Workflow:            media.WorkflowPrivate,
		MaxItemsPerPlaylist: 100,
		SharedFanoutCap:     1000,
		ResultCap:           1000,
		AnonymousActions: map[string]bool{
			"report":  true,
			"like":    true,
			"dislike": true,
			"watch":   true,
		},
	}
}

// AnonymousActionAllowed reports whether anonymous principals may perform
// the action on objects they can view.
func (c Configuration) AnonymousActionAllowed(action string) bool {
	return c.AnonymousActions[action]
}

// Package identity resolves an authenticated user (or anonymous session)
// into the immutable principal the visibility engine evaluates against.
//
// A Principal is loaded once per request. Role flags and category
// memberships are never re-queried mid-request; concurrent requests may
// therefore evaluate policy over the same objects without locking.
package identity

// Principal is an authenticated user or an anonymous session, snapshotted
// for the duration of one request.
type Principal struct {
	// ID is nil for anonymous principals.
	ID *int64

	IsSuperuser   bool
	IsEditor      bool
	IsManager     bool
	IsContributor bool

	// Categories holds the ids of group-restricted categories the
	// principal belongs to. Empty unless RBAC mode is enabled.
	Categories []int64
}

// Anonymous returns the principal used for unauthenticated requests.
func Anonymous() *Principal {
	return &Principal{}
}

// IsAnonymous reports whether the principal has no identity.
func (p *Principal) IsAnonymous() bool {
	return p == nil || p.ID == nil
}

// UserID returns the principal's user id, or 0 for anonymous principals.
func (p *Principal) UserID() int64 {
	if p.IsAnonymous() {
		return 0
	}
	return *p.ID
}

// HasElevatedRole reports whether the principal holds a role that can view
// and modify any media object (editor, manager or superuser).
func (p *Principal) HasElevatedRole() bool {
	if p == nil {
		return false
	}
	return p.IsSuperuser || p.IsEditor || p.IsManager
}

// InCategory reports whether the principal belongs to the given
// group-restricted category.
func (p *Principal) InCategory(categoryID int64) bool {
	if p == nil {
		return false
	}
	for _, id := range p.Categories {
		if id == categoryID {
			return true
		}
	}
	return false
}

// IntersectsCategories reports whether any of the given category ids is in
// the principal's membership set.
func (p *Principal) IntersectsCategories(categoryIDs []int64) bool {
	if p == nil || len(p.Categories) == 0 {
		return false
	}
	member := make(map[int64]struct{}, len(p.Categories))
	for _, id := range p.Categories {
		member[id] = struct{}{}
	}
	for _, id := range categoryIDs {
		if _, ok := member[id]; ok {
			return true
		}
	}
	return false
}

package policy

import (
	"context"
	"fmt"

	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

// GrantSource answers explicit-share lookups. *grants.Store implements it.
type GrantSource interface {
	HasGrant(ctx context.Context, objectID int64, kind grants.ObjectKind, granteeID int64, minLevel grants.Level) (bool, error)
}

// Engine is the visibility policy, implemented once per object kind. Media
// and playlists have deliberately different models: media composes
// listability, ownership, roles, grants and RBAC categories; playlists use
// only owner plus shared reader/editor sets, and deny all anonymous access.
type Engine struct {
	cfg     Configuration
	grants  GrantSource
	metrics *observability.Metrics
}

// NewEngine creates a policy engine.
func NewEngine(cfg Configuration, grantSource GrantSource) *Engine {
	return &Engine{cfg: cfg, grants: grantSource}
}

// SetMetrics attaches decision counters. A nil-metrics engine records
// nothing, which is what tests and the sync worker want.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.metrics = m
}

// record counts one decision under the given check label.
func (e *Engine) record(check string, allowed bool) {
	if e.metrics == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	e.metrics.PolicyDecisionsTotal.WithLabelValues(check, outcome).Inc()
}

// Configuration returns the engine's immutable deployment policy.
func (e *Engine) Configuration() Configuration {
	return e.cfg
}

// CanView reports whether the principal may see the media object. The
// clauses form a pure OR; evaluation order is an optimization only. Cheap
// in-memory clauses run before the grant lookup touches storage.
func (e *Engine) CanView(ctx context.Context, p *identity.Principal, m *media.Media) (bool, error) {
	ok, err := e.canView(ctx, p, m)
	if err == nil {
		e.record("view", ok)
	}
	return ok, err
}

func (e *Engine) canView(ctx context.Context, p *identity.Principal, m *media.Media) (bool, error) {
	if m.Listable {
		return true, nil
	}
	if p.IsAnonymous() {
		// Anonymous visibility reduces to the listable flag.
		return false, nil
	}
	if p.UserID() == m.OwnerID {
		return true, nil
	}
	if p.HasElevatedRole() {
		return true, nil
	}
	if e.cfg.RBACEnabled && p.IntersectsCategories(m.CategoryIDs) {
		return true, nil
	}

	ok, err := e.grants.HasGrant(ctx, m.ID, grants.KindMedia, p.UserID(), grants.LevelRead)
	if err != nil {
		return false, fmt.Errorf("grant lookup for media %d: %w", m.ID, err)
	}
	return ok, nil
}

// CanModify reports whether the principal may mutate the media object.
// Stricter than CanView: listability and RBAC read-membership alone never
// grant modify rights.
func (e *Engine) CanModify(ctx context.Context, p *identity.Principal, m *media.Media) (bool, error) {
	ok, err := e.canModify(ctx, p, m)
	if err == nil {
		e.record("modify", ok)
	}
	return ok, err
}

func (e *Engine) canModify(ctx context.Context, p *identity.Principal, m *media.Media) (bool, error) {
	if p.IsAnonymous() {
		return false, nil
	}
	if p.UserID() == m.OwnerID {
		return true, nil
	}
	if p.HasElevatedRole() {
		return true, nil
	}

	ok, err := e.grants.HasGrant(ctx, m.ID, grants.KindMedia, p.UserID(), grants.LevelWrite)
	if err != nil {
		return false, fmt.Errorf("grant lookup for media %d: %w", m.ID, err)
	}
	return ok, nil
}

// CanPerformAction reports whether the principal may perform a named
// mutating action on the media object. Anonymous principals are limited to
// the configured allow-list, and only on objects they can view.
func (e *Engine) CanPerformAction(ctx context.Context, p *identity.Principal, m *media.Media, action string) (bool, error) {
	if p.IsAnonymous() {
		if !e.cfg.AnonymousActionAllowed(action) {
			return false, nil
		}
		return e.CanView(ctx, p, m)
	}
	if e.cfg.AnonymousActionAllowed(action) {
		// The allow-listed actions require view access only.
		return e.CanView(ctx, p, m)
	}
	return e.CanModify(ctx, p, m)
}

// CanViewPlaylist reports whether the principal may see the playlist.
// Anonymous principals are always denied, even for read; this asymmetry
// with media visibility is intentional.
func (e *Engine) CanViewPlaylist(p *identity.Principal, pl *media.Playlist) bool {
	ok := e.canViewPlaylist(p, pl)
	e.record("view_playlist", ok)
	return ok
}

func (e *Engine) canViewPlaylist(p *identity.Principal, pl *media.Playlist) bool {
	if p.IsAnonymous() {
		return false
	}
	if p.UserID() == pl.OwnerID {
		return true
	}
	if p.HasElevatedRole() {
		return true
	}
	return pl.HasSharedReader(p.UserID()) || pl.HasSharedEditor(p.UserID())
}

// CanModifyPlaylist reports whether the principal may mutate the playlist.
func (e *Engine) CanModifyPlaylist(p *identity.Principal, pl *media.Playlist) bool {
	ok := e.canModifyPlaylist(p, pl)
	e.record("modify_playlist", ok)
	return ok
}

func (e *Engine) canModifyPlaylist(p *identity.Principal, pl *media.Playlist) bool {
	if p.IsAnonymous() {
		return false
	}
	if p.UserID() == pl.OwnerID {
		return true
	}
	if p.HasElevatedRole() {
		return true
	}
	return pl.HasSharedEditor(p.UserID())
}

// CanGrant reports whether the principal may create or revoke grants on
// behalf of the object owner: the owner themselves, or an editor/manager/
// superuser acting for them.
func (e *Engine) CanGrant(p *identity.Principal, ownerID int64) bool {
	if p.IsAnonymous() {
		return false
	}
	return p.UserID() == ownerID || p.HasElevatedRole()
}

package api

import (
	"net/http"

	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/media"
)

// authorizeGrantAccess loads the media object and checks the caller may
// manage its shares. Callers without even view access get the same 404 a
// missing object would produce.
func (s *Server) authorizeGrantAccess(w http.ResponseWriter, r *http.Request, p *identity.Principal, mediaID int64) (*media.Media, bool) {
	m, err := s.media.Get(r.Context(), mediaID)
	if err != nil {
		writeReadError(w, err)
		return nil, false
	}
	if s.engine.CanGrant(p, m.OwnerID) {
		return m, true
	}

	visible, err := s.engine.CanView(r.Context(), p, m)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return nil, false
	}
	if !visible {
		httputil.WriteNotFoundError(w, "not found")
		return nil, false
	}
	httputil.WriteForbidden(w, "not allowed to manage shares on this media")
	return nil, false
}

// listGrants handles GET /api/v1/media/{id}/grants
func (s *Server) listGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.authorizeGrantAccess(w, r, principalFrom(r), id); !ok {
		return
	}

	shares, err := s.grants.ForObject(r.Context(), id, grants.KindMedia)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"grants": shares})
}

// grantRequest is the body of POST /api/v1/media/{id}/grants.
type grantRequest struct {
	GranteeID int64  `json:"grantee_id"`
	Level     string `json:"level"`
}

// createGrant handles POST /api/v1/media/{id}/grants
func (s *Server) createGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := principalFrom(r)

	var req grantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonZero(w, req.GranteeID, "grantee_id") {
		return
	}
	level, err := grants.ParseLevel(req.Level)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	m, ok := s.authorizeGrantAccess(w, r, p, id)
	if !ok {
		return
	}
	if req.GranteeID == m.OwnerID {
		httputil.WriteValidationError(w, "owner cannot be granted access to their own media")
		return
	}

	g := &grants.Grant{
		ObjectID:  id,
		Kind:      grants.KindMedia,
		GranteeID: req.GranteeID,
		GrantedBy: p.UserID(),
		Level:     level,
	}
	if err := s.grants.Create(r.Context(), g); err != nil {
		writeWriteError(w, err)
		return
	}
	httputil.WriteCreated(w, g)
}

// revokeGrant handles DELETE /api/v1/media/{id}/grants/{grantId}
func (s *Server) revokeGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	grantID, ok := httputil.ParsePathInt64OrError(w, r, "grantId")
	if !ok {
		return
	}
	if _, ok := s.authorizeGrantAccess(w, r, principalFrom(r), id); !ok {
		return
	}

	// The grant must belong to this object; a bare id from another object
	// must not be revocable through this route.
	shares, err := s.grants.ForObject(r.Context(), id, grants.KindMedia)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	found := false
	for _, g := range shares {
		if g.ID == grantID {
			found = true
			break
		}
	}
	if !found {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	if err := s.grants.Revoke(r.Context(), grantID); err != nil {
		writeWriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

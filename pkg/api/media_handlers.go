package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/async"
	"github.com/mediacms-io/mediacms-go/pkg/bulk"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/listing"
	"github.com/mediacms-io/mediacms-go/pkg/media"
)

// getMedia handles GET /api/v1/media/{id}
func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := principalFrom(r)

	m, err := s.media.Get(r.Context(), id)
	if err != nil {
		writeReadError(w, err)
		return
	}

	visible, err := s.engine.CanView(r.Context(), p, m)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !visible {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	// Views are recorded off the request path; a storage hiccup here must
	// not affect the response.
	var viewerID *int64
	if !p.IsAnonymous() {
		uid := p.UserID()
		viewerID = &uid
	}
	async.SafeGo(r.Context(), s.logger, 5*time.Second, "record watch", func(ctx context.Context) error {
		return s.media.RecordAction(ctx, m.ID, "watch", viewerID)
	})

	httputil.WriteSuccess(w, m)
}

// listMedia handles GET /api/v1/media
func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	scope, err := listing.ParseScope(httputil.ParseQueryString(r, "scope", string(listing.ScopePublic)))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	authorID, err := httputil.ParseQueryInt64(r, "author_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	page, err := s.listing.List(r.Context(), p, listing.Request{
		Scope:    scope,
		AuthorID: authorID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeReadError(w, err)
		return
	}

	httputil.WriteSuccess(w, page)
}

// stateRequest is the body of POST /api/v1/media/{id}/state. Absent fields
// are left unchanged.
type stateRequest struct {
	State          *string `json:"state,omitempty"`
	EncodingStatus *string `json:"encoding_status,omitempty"`
	Reviewed       *bool   `json:"is_reviewed,omitempty"`
}

// setMediaState handles POST /api/v1/media/{id}/state
func (s *Server) setMediaState(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := principalFrom(r)

	var req stateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.State == nil && req.EncodingStatus == nil && req.Reviewed == nil {
		httputil.WriteValidationError(w, "at least one of state, encoding_status or is_reviewed is required")
		return
	}

	m, err := s.media.Get(r.Context(), id)
	if err != nil {
		writeReadError(w, err)
		return
	}
	allowed, err := s.engine.CanModify(r.Context(), p, m)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !allowed {
		// The caller could not have seen this object; keep it invisible.
		visible, verr := s.engine.CanView(r.Context(), p, m)
		if verr == nil && !visible {
			httputil.WriteNotFoundError(w, "not found")
			return
		}
		httputil.WriteForbidden(w, "not allowed to modify this media")
		return
	}

	var t media.Transition
	if req.State != nil {
		state, err := media.ParseState(*req.State)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		t.State = &state
	}
	if req.EncodingStatus != nil {
		status, err := media.ParseEncodingStatus(*req.EncodingStatus)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		t.EncodingStatus = &status
	}
	if req.Reviewed != nil {
		t.Reviewed = req.Reviewed
	}

	// The review bit and the encoding pipeline status are moderation and
	// pipeline fields; ownership alone does not reach them.
	if (t.Reviewed != nil || t.EncodingStatus != nil) && !p.HasElevatedRole() {
		writeWriteError(w, apperr.PolicyViolationf("review and encoding fields require an elevated role"))
		return
	}

	updated, err := s.media.ApplyTransition(r.Context(), id, t, p)
	if err != nil {
		writeWriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, updated)
}

// actionRequest is the body of POST /api/v1/media/{id}/actions.
type actionRequest struct {
	Action string `json:"action"`
}

var mediaActions = map[string]bool{
	"report":  true,
	"like":    true,
	"dislike": true,
	"watch":   true,
}

// recordMediaAction handles POST /api/v1/media/{id}/actions. Anonymous
// callers are limited to the deployment's allow-listed actions, and every
// caller must at least be able to view the target.
func (s *Server) recordMediaAction(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := principalFrom(r)

	var req actionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !mediaActions[req.Action] {
		httputil.WriteBadRequest(w, fmt.Sprintf("invalid action %q", req.Action))
		return
	}

	m, err := s.media.Get(r.Context(), id)
	if err != nil {
		writeReadError(w, err)
		return
	}

	allowed, err := s.engine.CanPerformAction(r.Context(), p, m, req.Action)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !allowed {
		// The caller could not have seen this object; keep it invisible.
		visible, verr := s.engine.CanView(r.Context(), p, m)
		if verr == nil && !visible {
			httputil.WriteNotFoundError(w, "not found")
			return
		}
		httputil.WriteForbidden(w, "not allowed to perform this action")
		return
	}

	var actorID *int64
	if !p.IsAnonymous() {
		uid := p.UserID()
		actorID = &uid
	}
	if err := s.media.RecordAction(r.Context(), m.ID, req.Action, actorID); err != nil {
		writeWriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// bulkRequest is the body of POST /api/v1/media/bulk.
type bulkRequest struct {
	Action   string      `json:"action"`
	MediaIDs []int64     `json:"media_ids"`
	Params   bulk.Params `json:"params"`
}

// applyBulkAction handles POST /api/v1/media/bulk
func (s *Server) applyBulkAction(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req bulkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.MediaIDs) == 0 {
		httputil.WriteValidationError(w, "media_ids is required")
		return
	}

	action, err := bulk.ParseAction(req.Action)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := s.bulk.Apply(r.Context(), p, req.MediaIDs, action, req.Params)
	if err != nil {
		writeWriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// signedURLResponse carries a presigned object-store URL.
type signedURLResponse struct {
	URL string `json:"url"`
}

// downloadURL handles GET /api/v1/media/{id}/download
func (s *Server) downloadURL(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		httputil.WriteServiceUnavailable(w, "no object store configured")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	url, err := s.assets.DownloadURL(r.Context(), principalFrom(r), id)
	if err != nil {
		writeReadError(w, err)
		return
	}
	httputil.WriteSuccess(w, signedURLResponse{URL: url})
}

// uploadURL handles POST /api/v1/media/{id}/upload
func (s *Server) uploadURL(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		httputil.WriteServiceUnavailable(w, "no object store configured")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	url, err := s.assets.UploadURL(r.Context(), principalFrom(r), id)
	if err != nil {
		writeWriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, signedURLResponse{URL: url})
}

// parsePagination reads the shared limit/offset query parameters.
func parsePagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return 0, 0, false
	}
	offset, err = httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return 0, 0, false
	}
	if limit < 0 || offset < 0 {
		httputil.WriteValidationError(w, "limit and offset must not be negative")
		return 0, 0, false
	}
	return limit, offset, true
}

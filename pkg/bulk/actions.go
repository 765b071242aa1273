// Package bulk applies one action to many media objects at once. Requested
// ids that do not exist or that the actor may not modify are silently
// excluded; per-item mutation failures are accumulated without aborting the
// rest of the batch.
package bulk

import (
	"context"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/media"
)

// Action is a bulk action name.
type Action string

const (
	ActionEnableComments     Action = "enable_comments"
	ActionDisableComments    Action = "disable_comments"
	ActionEnableDownload     Action = "enable_download"
	ActionDisableDownload    Action = "disable_download"
	ActionDelete             Action = "delete"
	ActionAddToPlaylist      Action = "add_to_playlist"
	ActionRemoveFromPlaylist Action = "remove_from_playlist"
	ActionChangeOwner        Action = "change_owner"
	ActionCopy               Action = "copy"
	ActionSetState           Action = "set_state"
)

// ParseAction validates a bulk action name.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionEnableComments, ActionDisableComments, ActionEnableDownload,
		ActionDisableDownload, ActionDelete, ActionAddToPlaylist,
		ActionRemoveFromPlaylist, ActionChangeOwner, ActionCopy, ActionSetState:
		return Action(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid bulk action %q", s)
}

// Params carries the action-specific arguments. Only the field the action
// needs is consulted.
type Params struct {
	PlaylistID int64       `json:"playlist_id,omitempty"`
	NewOwnerID int64       `json:"new_owner_id,omitempty"`
	State      media.State `json:"state,omitempty"`
}

// validate checks that the params required by the action are present.
func (p Params) validate(action Action) error {
	switch action {
	case ActionAddToPlaylist, ActionRemoveFromPlaylist:
		if p.PlaylistID == 0 {
			return apperr.InvalidArgumentf("%s requires a playlist id", action)
		}
	case ActionChangeOwner:
		if p.NewOwnerID == 0 {
			return apperr.InvalidArgumentf("change_owner requires a new owner id")
		}
	case ActionSetState:
		if _, err := media.ParseState(string(p.State)); err != nil {
			return err
		}
	}
	return nil
}

// Failure records one item whose mutation failed after it had passed the
// existence and policy checks.
type Failure struct {
	MediaID int64  `json:"media_id"`
	Reason  string `json:"reason"`
}

// Result summarizes a bulk action. Excluded ids failed the existence or
// policy check; Skipped ids hit a capacity bound; Failures are storage
// errors on individual items.
type Result struct {
	Requested int       `json:"requested"`
	Succeeded int       `json:"succeeded"`
	Excluded  []int64   `json:"excluded,omitempty"`
	Skipped   []int64   `json:"skipped,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
}

func (r *Result) exclude(id int64) { r.Excluded = append(r.Excluded, id) }
func (r *Result) skip(id int64)    { r.Skipped = append(r.Skipped, id) }
func (r *Result) succeed()         { r.Succeeded++ }
func (r *Result) fail(id int64, err error) {
	r.Failures = append(r.Failures, Failure{MediaID: id, Reason: err.Error()})
}

// itemFn applies the action to one already-authorized media object.
type itemFn func(ctx context.Context, m *media.Media) error

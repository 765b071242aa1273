// Package media defines the media and playlist objects the visibility
// engine decides over, the publication state machine that derives the
// listable flag, and their PostgreSQL stores.
package media

import (
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// State is the publication state of a media object.
type State string

const (
	StatePrivate  State = "private"
	StatePublic   State = "public"
	StateUnlisted State = "unlisted"
)

// ParseState validates a state value from request input.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePrivate, StatePublic, StateUnlisted:
		return State(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid state %q", s)
}

// EncodingStatus is the transcoding pipeline status of a media object.
type EncodingStatus string

const (
	EncodingPending EncodingStatus = "pending"
	EncodingRunning EncodingStatus = "running"
	EncodingSuccess EncodingStatus = "success"
	EncodingFailed  EncodingStatus = "failed"
)

// ParseEncodingStatus validates an encoding status value.
func ParseEncodingStatus(s string) (EncodingStatus, error) {
	switch EncodingStatus(s) {
	case EncodingPending, EncodingRunning, EncodingSuccess, EncodingFailed:
		return EncodingStatus(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid encoding status %q", s)
}

// MediaType is the kind of media file.
type MediaType string

const (
	TypeVideo MediaType = "video"
	TypeAudio MediaType = "audio"
	TypeImage MediaType = "image"
	TypePDF   MediaType = "pdf"
)

// Media is a media object. Listable is derived and persisted for query
// efficiency; it is recomputed by the state machine on every
// state-affecting mutation and never set directly from request input.
type Media struct {
	ID             int64          `json:"id"`
	OwnerID        int64          `json:"owner_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	MediaType      MediaType      `json:"media_type"`
	State          State          `json:"state"`
	EncodingStatus EncodingStatus `json:"encoding_status"`
	Reviewed       bool           `json:"is_reviewed"`
	Listable       bool           `json:"listable"`
	AllowComments  bool           `json:"enable_comments"`
	AllowDownload  bool           `json:"allow_download"`
	Featured       bool           `json:"featured"`
	Views          int64          `json:"views"`
	Likes          int64          `json:"likes"`
	CategoryIDs    []int64        `json:"category_ids,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	FileKey        string         `json:"-"`
	AddDate        time.Time      `json:"add_date"`
	EditDate       time.Time      `json:"edit_date"`
}

// DeriveListable reports whether a media object with the given governing
// fields is publicly discoverable.
func DeriveListable(state State, encoding EncodingStatus, reviewed bool) bool {
	return state == StatePublic && encoding == EncodingSuccess && reviewed
}

// Listable objects satisfy DeriveListable over their current fields. The
// persisted column must always agree with this derivation.
func (m *Media) deriveListable() {
	m.Listable = DeriveListable(m.State, m.EncodingStatus, m.Reviewed)
}

// Playlist is an ordered collection of media references with its own
// permission model: owner plus explicit shared reader and shared editor
// sets, no category linkage.
type Playlist struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	SharedReaderIDs []int64   `json:"shared_reader_ids,omitempty"`
	SharedEditorIDs []int64   `json:"shared_editor_ids,omitempty"`
	AddDate         time.Time `json:"add_date"`
}

// HasSharedReader reports whether userID is in the shared reader set.
func (p *Playlist) HasSharedReader(userID int64) bool {
	return containsID(p.SharedReaderIDs, userID)
}

// HasSharedEditor reports whether userID is in the shared editor set.
func (p *Playlist) HasSharedEditor(userID int64) bool {
	return containsID(p.SharedEditorIDs, userID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// PlaylistEntry is one media reference inside a playlist. Ordering is a
// dense integer per playlist; values need not be gap-free but must resolve
// monotonically.
type PlaylistEntry struct {
	PlaylistID int64     `json:"playlist_id"`
	MediaID    int64     `json:"media_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
}

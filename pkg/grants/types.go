// Package grants holds explicit object-level shares: a grant gives one
// principal read or write access to one media object or playlist, outside
// the normal ownership and role rules.
package grants

import (
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// ObjectKind identifies the kind of object a grant attaches to.
type ObjectKind string

const (
	KindMedia    ObjectKind = "media"
	KindPlaylist ObjectKind = "playlist"
)

// ParseObjectKind validates an object kind value.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch ObjectKind(s) {
	case KindMedia, KindPlaylist:
		return ObjectKind(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid object kind %q", s)
}

// Level is the access level of a grant. Write implies read.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
)

// ParseLevel validates an access level value.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelRead, LevelWrite:
		return Level(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid access level %q", s)
}

// Satisfies reports whether the level meets the minimum required level.
func (l Level) Satisfies(min Level) bool {
	if min == LevelRead {
		return l == LevelRead || l == LevelWrite
	}
	return l == LevelWrite
}

// Grant is an explicit object-scoped share. It is owned by the object:
// deleting the object deletes its grants.
type Grant struct {
	ID        int64      `json:"id"`
	ObjectID  int64      `json:"object_id"`
	Kind      ObjectKind `json:"object_kind"`
	GranteeID int64      `json:"grantee_id"`
	GrantedBy int64      `json:"granted_by"`
	Level     Level      `json:"level"`
	CreatedAt time.Time  `json:"created_at"`
}

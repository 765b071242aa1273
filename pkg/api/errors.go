package api

import (
	"net/http"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
)

// writeReadError maps a domain error onto a read response. Policy denials
// and missing objects collapse to the same 404 so callers cannot test
// which object ids exist.
func writeReadError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsNotFound(err), apperr.IsPolicyViolation(err):
		httputil.WriteNotFoundError(w, "not found")
	case apperr.IsInvalidArgument(err):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

// writeWriteError maps a domain error onto a mutation response. Unlike
// reads, a policy denial on an object the caller already knows exists is
// reported as 403.
func writeWriteError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsNotFound(err):
		httputil.WriteNotFoundError(w, "not found")
	case apperr.IsPolicyViolation(err):
		httputil.WriteForbidden(w, err.Error())
	case apperr.IsInvalidArgument(err):
		httputil.WriteBadRequest(w, err.Error())
	case apperr.IsCapacityExceeded(err):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

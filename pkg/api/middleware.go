package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/contextkeys"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

// PrincipalMiddleware resolves the bearer session token on each request to
// a principal and stores it in the request context. Requests with no token,
// an unknown token or an expired token proceed as anonymous; resolution is
// never a gate, only an identification step.
type PrincipalMiddleware struct {
	sessions *identity.SessionStore
	resolver identity.Resolver
	logger   *observability.Logger
}

// NewPrincipalMiddleware creates the principal resolution middleware.
func NewPrincipalMiddleware(sessions *identity.SessionStore, resolver identity.Resolver, logger *observability.Logger) *PrincipalMiddleware {
	return &PrincipalMiddleware{sessions: sessions, resolver: resolver, logger: logger}
}

// Handler wraps an HTTP handler with principal resolution.
func (m *PrincipalMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.resolve(r)
		if err != nil {
			m.logger.WithError(err).Error("principal resolution failed")
			httputil.WriteInternalError(w, err)
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), p)
		if !p.IsAnonymous() {
			ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(p.UserID(), 10))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *PrincipalMiddleware) resolve(r *http.Request) (*identity.Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return identity.Anonymous(), nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return identity.Anonymous(), nil
	}

	userID, err := m.sessions.UserID(r.Context(), parts[1])
	if err != nil {
		if apperr.IsNotFound(err) {
			return identity.Anonymous(), nil
		}
		return nil, err
	}

	p, err := m.resolver.Resolve(r.Context(), userID)
	if err != nil {
		// A session pointing at a deleted user is treated like no session.
		if apperr.IsNotFound(err) {
			return identity.Anonymous(), nil
		}
		return nil, err
	}
	return p, nil
}

// RequestIDMiddleware tags each request with a UUID, honoring an inbound
// X-Request-ID so ids survive proxy hops.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalFrom returns the principal the middleware attached to the
// request, or the anonymous principal when the route is served without it.
func principalFrom(r *http.Request) *identity.Principal {
	if p, ok := r.Context().Value(contextkeys.PrincipalKey).(*identity.Principal); ok && p != nil {
		return p
	}
	return identity.Anonymous()
}

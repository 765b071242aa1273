package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mediacms-io/mediacms-go/pkg/assets"
	"github.com/mediacms-io/mediacms-go/pkg/bulk"
	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/listing"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/search"
)

// Deps holds everything the server routes to. Assets may be nil when no
// object store is configured; the signed-URL routes then answer 503.
type Deps struct {
	Media     *media.Store
	Playlists *media.PlaylistStore
	Grants    *grants.Store
	Engine    *policy.Engine
	Listing   *listing.Service
	Search    *search.Service
	Bulk      *bulk.Service
	Assets    *assets.Service
	Sessions  *identity.SessionStore
	Resolver  identity.Resolver
	Logger    *observability.Logger

	// RateLimit optionally wraps the routed handler. It runs after
	// principal resolution so limits key on user ids.
	RateLimit func(http.Handler) http.Handler
}

// Server is the API server.
type Server struct {
	router  *mux.Router
	handler http.Handler

	media     *media.Store
	playlists *media.PlaylistStore
	grants    *grants.Store
	engine    *policy.Engine
	listing   *listing.Service
	search    *search.Service
	bulk      *bulk.Service
	assets    *assets.Service
	logger    *observability.Logger
}

// NewServer creates the API server and wires up its routes and middleware.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		media:     deps.Media,
		playlists: deps.Playlists,
		grants:    deps.Grants,
		engine:    deps.Engine,
		listing:   deps.Listing,
		search:    deps.Search,
		bulk:      deps.Bulk,
		assets:    deps.Assets,
		logger:    deps.Logger,
	}
	s.setupRoutes()

	principal := NewPrincipalMiddleware(deps.Sessions, deps.Resolver, deps.Logger)
	middlewares := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(deps.Logger),
		RequestIDMiddleware,
		principal.Handler,
	}
	if deps.RateLimit != nil {
		middlewares = append(middlewares, deps.RateLimit)
	}
	s.handler = otelhttp.NewHandler(httputil.Chain(middlewares...)(s.router), "mediacms.api")

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Media routes
	s.router.HandleFunc("/api/v1/media", s.listMedia).Methods("GET")
	s.router.HandleFunc("/api/v1/media/{id}", s.getMedia).Methods("GET")
	s.router.HandleFunc("/api/v1/media/{id}/state", s.setMediaState).Methods("POST")
	s.router.HandleFunc("/api/v1/media/{id}/actions", s.recordMediaAction).Methods("POST")
	s.router.HandleFunc("/api/v1/media/bulk", s.applyBulkAction).Methods("POST")

	// Search
	s.router.HandleFunc("/api/v1/search", s.searchMedia).Methods("GET")

	// Grant routes
	s.router.HandleFunc("/api/v1/media/{id}/grants", s.listGrants).Methods("GET")
	s.router.HandleFunc("/api/v1/media/{id}/grants", s.createGrant).Methods("POST")
	s.router.HandleFunc("/api/v1/media/{id}/grants/{grantId}", s.revokeGrant).Methods("DELETE")

	// Playlist routes
	s.router.HandleFunc("/api/v1/playlists/{id}", s.getPlaylist).Methods("GET")

	// Signed asset URLs
	s.router.HandleFunc("/api/v1/media/{id}/download", s.downloadURL).Methods("GET")
	s.router.HandleFunc("/api/v1/media/{id}/upload", s.uploadURL).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

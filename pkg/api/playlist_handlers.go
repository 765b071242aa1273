package api

import (
	"net/http"

	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/media"
)

// playlistResponse is a playlist with its resolved entries.
type playlistResponse struct {
	*media.Playlist
	Entries []media.PlaylistEntry `json:"entries"`
}

// getPlaylist handles GET /api/v1/playlists/{id}
func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := principalFrom(r)

	pl, err := s.playlists.Get(r.Context(), id)
	if err != nil {
		writeReadError(w, err)
		return
	}
	if !s.engine.CanViewPlaylist(p, pl) {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	entries, err := s.playlists.Entries(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, playlistResponse{Playlist: pl, Entries: entries})
}

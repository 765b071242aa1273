package api

import (
	"net/http"

	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/search"
)

// searchMedia handles GET /api/v1/search
func (s *Server) searchMedia(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	dateBucket, err := search.ParseDateBucket(httputil.ParseQueryString(r, "date", ""))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	authorID, err := httputil.ParseQueryInt64(r, "author_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	counted, err := httputil.ParseQueryBool(r, "counted", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	limit, offset, ok := parsePagination(w, r)
	if !ok {
		return
	}

	req := search.Request{
		Query: httputil.ParseQueryString(r, "q", ""),
		Facets: search.Facets{
			Category:   httputil.ParseQueryString(r, "category", ""),
			Tag:        httputil.ParseQueryString(r, "tag", ""),
			MediaType:  httputil.ParseQueryString(r, "media_type", ""),
			AuthorID:   authorID,
			DateBucket: dateBucket,
		},
		Sort: search.Sort{
			Field:     httputil.ParseQueryString(r, "sort_by", ""),
			Ascending: httputil.ParseQueryString(r, "ordering", "desc") == "asc",
		},
		Counted: counted,
		Limit:   limit,
		Offset:  offset,
	}

	page, err := s.search.Search(r.Context(), p, req)
	if err != nil {
		writeReadError(w, err)
		return
	}

	httputil.WriteSuccess(w, page)
}

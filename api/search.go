package api

import (
	"net/http"
	"strconv"

	"photosearch/api/handler"
)

func (a *API) searchHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if a.Photos == nil {
		return serviceUnavailableError
	}

	q := r.URL.Query()

	page, err := intParam(q.Get("page"))
	if err != nil {
		return handler.BadRequest("invalid page")
	}

	perPage, err := intParam(q.Get("per_page"))
	if err != nil {
		return handler.BadRequest("invalid per_page")
	}

	resp, err := a.Photos.SearchPhotos(r.Context(), q.Get("query"), page, perPage)
	if err != nil {
		return a.errorFor(r, err)
	}

	return handler.WriteJSON(w, http.StatusOK, resp)
}

// intParam parses an optional integer query parameter, returning 0 when absent
func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

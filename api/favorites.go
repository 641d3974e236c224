package api

import (
	"encoding/json"
	"net/http"

	"photosearch/api/handler"
	"photosearch/types"

	"github.com/gorilla/mux"
)

// FavoriteStatus reports whether a photo is a favorite
type FavoriteStatus struct {
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

func (a *API) listFavoritesHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if a.Favorites == nil {
		return serviceUnavailableError
	}

	photos, err := a.Favorites.List(r.Context())
	if err != nil {
		return a.errorFor(r, err)
	}

	return handler.WriteJSON(w, http.StatusOK, photos)
}

func (a *API) getFavoriteHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if a.Favorites == nil {
		return serviceUnavailableError
	}

	id := mux.Vars(r)["id"]
	ok, err := a.Favorites.Contains(r.Context(), id)
	if err != nil {
		return a.errorFor(r, err)
	}

	return handler.WriteJSON(w, http.StatusOK, FavoriteStatus{ID: id, Favorite: ok})
}

func (a *API) putFavoriteHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if a.Favorites == nil {
		return serviceUnavailableError
	}

	id := mux.Vars(r)["id"]

	var photo types.Photo
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&photo); err != nil {
		return handler.BadRequest("invalid photo")
	}
	if photo.ID != "" && photo.ID != id {
		return handler.BadRequest("photo id does not match path")
	}
	photo.ID = id

	if err := a.Favorites.Add(r.Context(), photo); err != nil {
		return a.errorFor(r, err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) deleteFavoriteHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if a.Favorites == nil {
		return serviceUnavailableError
	}

	if err := a.Favorites.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		return a.errorFor(r, err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Package api exposes image processing, photo search and favorites over HTTP.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"photosearch/api/handler"
	"photosearch/cvimage"
	"photosearch/favorites"
	"photosearch/health"
	"photosearch/imageio"
	"photosearch/imageprocessor"
	"photosearch/metrics"
	"photosearch/types"
	"photosearch/unsplash"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Http timeouts
const (
	ReadTimeout    = 5 * time.Second
	WriteTimeout   = time.Minute
	HandlerTimeout = 45 * time.Second
)

// DefaultMaxUploadBytes limits the size of uploaded images
const DefaultMaxUploadBytes = 32 << 20

// PhotoSource searches for photos
type PhotoSource interface {
	SearchPhotos(ctx context.Context, query string, page, perPage int) (*types.PhotoResponse, error)
}

// API is a http api
type API struct {
	Routines       *imageprocessor.Registry
	Photos         PhotoSource
	Favorites      *favorites.Store
	Database       *sql.DB
	HealthChecker  *health.Checker
	Log            *zap.SugaredLogger
	HandlerTimeout time.Duration
	MaxUploadBytes int64
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	// Healthcheck
	if a.HealthChecker != nil {
		router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET", "HEAD").Name("health")
	}
	router.Handle("/metrics", metrics.Handler()).Methods("GET").Name("metrics")

	// Processing
	router.Handle("/v1/routines", handler.Handler(a.routinesHandler)).Methods("GET").Name("routines")
	router.Handle("/v1/process/{routine}", handler.Handler(a.processHandler)).Methods("POST").Name("process")

	// Query parameters:
	// ?format={format} - Output format, png by default

	// Search
	router.Handle("/v1/search", handler.Handler(a.searchHandler)).Methods("GET").Name("search")

	// Query parameters:
	// ?query={query} - What to search for
	// ?page={page} - What page to display
	// ?per_page={per_page} - How many entries to display per page

	// Favorites
	router.Handle("/v1/favorites", handler.Handler(a.listFavoritesHandler)).Methods("GET").Name("favorites")
	router.Handle("/v1/favorites/{id}", handler.Handler(a.getFavoriteHandler)).Methods("GET").Name("favorite")
	router.Handle("/v1/favorites/{id}", handler.Handler(a.putFavoriteHandler)).Methods("PUT").Name("favorite")
	router.Handle("/v1/favorites/{id}", handler.Handler(a.deleteFavoriteHandler)).Methods("DELETE").Name("favorite")

	timeout := a.HandlerTimeout
	if timeout <= 0 {
		timeout = HandlerTimeout
	}

	routes := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, metrics and handler execution timeout
	return handler.AddRequestID(handler.Recovery(a.Log, handler.Logger(a.Log, routes, handler.CORS([]string{handler.RequestIDHeader},
		handler.Metrics(http.TimeoutHandler(router, timeout, "Something went wrong. Timed out."), routes)))))
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}

var serviceUnavailableError = &handler.Error{
	Message: "not configured",
	Code:    http.StatusServiceUnavailable,
}

// errorFor maps a domain error to the response sent to the client
func (a *API) errorFor(r *http.Request, err error) *handler.Error {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return &handler.Error{Message: "image too large", Code: http.StatusRequestEntityTooLarge}
	case errors.Is(err, imageprocessor.ErrUnknownRoutine):
		return handler.NotFound(err.Error())
	case errors.Is(err, imageprocessor.ErrInvalidInput),
		errors.Is(err, cvimage.ErrDecodeFailed),
		errors.Is(err, imageio.ErrLoadFailed),
		errors.Is(err, imageio.ErrUnsupportedFormat),
		errors.Is(err, unsplash.ErrInvalidQuery),
		errors.Is(err, favorites.ErrInvalidPhoto):
		return handler.BadRequest(err.Error())
	case errors.Is(err, imageprocessor.ErrProcessingFailed),
		errors.Is(err, cvimage.ErrEncodeFailed):
		return &handler.Error{Message: err.Error(), Code: http.StatusUnprocessableEntity}
	case errors.Is(err, unsplash.ErrInvalidResponse):
		a.logError(r, "upstream search failed", err)
		return &handler.Error{Message: "search provider failed", Code: http.StatusBadGateway}
	default:
		a.logError(r, "request failed", err)
		return handler.InternalServerError()
	}
}

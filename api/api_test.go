package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photosearch/api"
	"photosearch/cvimage"
	"photosearch/database"
	"photosearch/favorites"
	"photosearch/health"
	"photosearch/imageio"
	"photosearch/imageprocessor"
	"photosearch/types"
	"photosearch/unsplash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type fakePhotos struct {
	err error
}

func (f *fakePhotos) SearchPhotos(_ context.Context, query string, page, perPage int) (*types.PhotoResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", unsplash.ErrInvalidQuery)
	}
	return &types.PhotoResponse{
		Total:      1,
		TotalPages: 1,
		Results:    []types.Photo{{ID: fmt.Sprintf("%s-%d-%d", query, page, perPage)}},
	}, nil
}

func pngBody(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imageio.Encode(&buf, cvimage.New(img), imageio.FormatPNG))
	return buf.Bytes()
}

func newTestAPI(t *testing.T, photos api.PhotoSource) (*api.API, http.Handler) {
	t.Helper()

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zap.NewNop().Sugar()
	checker := &health.Checker{Ctx: ctx, Database: db, Log: log}
	checker.Run()

	registry := imageprocessor.NewRegistry()
	registry.Register(imageprocessor.RoutineFunc{
		RoutineName:   "broken",
		RoutineLayout: cvimage.LayoutColor,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			return gocv.Mat{}, errors.New("no luck")
		},
	})

	a := &api.API{
		Routines:       registry,
		Photos:         photos,
		Favorites:      favorites.NewStore(db),
		Database:       db,
		HealthChecker:  checker,
		Log:            log,
		HandlerTimeout: time.Minute,
	}
	return a, a.Router()
}

func do(t *testing.T, h http.Handler, method, url string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestProcess(t *testing.T) {
	a, router := newTestAPI(t, nil)

	rr := do(t, router, http.MethodPost, "/v1/process/grayscale", bytes.NewReader(pngBody(t)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	img, format, err := imageio.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, imageio.FormatPNG, format)
	assert.Equal(t, 6, img.Width())
	assert.Equal(t, 4, img.Height())
	assert.Equal(t, cvimage.ColorSpaceGray, img.ColorSpace())
	assert.Equal(t, uint8(124), img.Pixels.(*image.Gray).GrayAt(0, 0).Y)

	rr = do(t, router, http.MethodPost, "/v1/process/identity?format=jpeg", bytes.NewReader(pngBody(t)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))

	stats, err := database.GetProcessedStats(a.Database, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalImages)
	assert.Zero(t, stats.ErrorCount)
}

func TestProcessErrors(t *testing.T) {
	a, router := newTestAPI(t, nil)

	tests := []struct {
		Name           string
		URL            string
		Body           []byte
		ExpectedStatus int
	}{
		{Name: "unknown routine", URL: "/v1/process/sharpen", Body: pngBody(t), ExpectedStatus: http.StatusNotFound},
		{Name: "garbage body", URL: "/v1/process/identity", Body: []byte("not an image"), ExpectedStatus: http.StatusBadRequest},
		{Name: "empty body", URL: "/v1/process/identity", Body: nil, ExpectedStatus: http.StatusBadRequest},
		{Name: "unsupported format", URL: "/v1/process/identity?format=webp", Body: pngBody(t), ExpectedStatus: http.StatusBadRequest},
		{Name: "routine failure", URL: "/v1/process/broken", Body: pngBody(t), ExpectedStatus: http.StatusUnprocessableEntity},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, test.URL, bytes.NewReader(test.Body))
			assert.Equal(t, test.ExpectedStatus, rr.Code, rr.Body.String())
		})
	}

	stats, err := database.GetProcessedStats(a.Database, "broken")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ErrorCount)
}

func TestProcessTooLarge(t *testing.T) {
	a, _ := newTestAPI(t, nil)
	a.MaxUploadBytes = 16

	rr := do(t, a.Router(), http.MethodPost, "/v1/process/identity", bytes.NewReader(pngBody(t)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRoutines(t *testing.T) {
	_, router := newTestAPI(t, nil)

	rr := do(t, router, http.MethodGet, "/v1/routines", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var routines []api.RoutineInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&routines))

	names := make([]string, len(routines))
	for i, r := range routines {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"blur", "broken", "edges", "grayscale", "identity", "rectangles"}, names)
	assert.Equal(t, api.RoutineInfo{Name: "edges", Layout: "gray"}, routines[2])
}

func TestSearch(t *testing.T) {
	_, router := newTestAPI(t, &fakePhotos{})

	rr := do(t, router, http.MethodGet, "/v1/search?query=cats&page=2&per_page=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp types.PhotoResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "cats-2-5", resp.Results[0].ID)

	tests := []struct {
		Name           string
		Photos         api.PhotoSource
		URL            string
		ExpectedStatus int
	}{
		{Name: "missing query", Photos: &fakePhotos{}, URL: "/v1/search", ExpectedStatus: http.StatusBadRequest},
		{Name: "bad page", Photos: &fakePhotos{}, URL: "/v1/search?query=cats&page=two", ExpectedStatus: http.StatusBadRequest},
		{Name: "bad per_page", Photos: &fakePhotos{}, URL: "/v1/search?query=cats&per_page=x", ExpectedStatus: http.StatusBadRequest},
		{Name: "upstream failure", Photos: &fakePhotos{err: fmt.Errorf("%w: status 500", unsplash.ErrInvalidResponse)}, URL: "/v1/search?query=cats", ExpectedStatus: http.StatusBadGateway},
		{Name: "other failure", Photos: &fakePhotos{err: errors.New("dial tcp: refused")}, URL: "/v1/search?query=cats", ExpectedStatus: http.StatusInternalServerError},
		{Name: "not configured", Photos: nil, URL: "/v1/search?query=cats", ExpectedStatus: http.StatusServiceUnavailable},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, router := newTestAPI(t, test.Photos)
			rr := do(t, router, http.MethodGet, test.URL, nil)
			assert.Equal(t, test.ExpectedStatus, rr.Code)
		})
	}
}

func TestFavorites(t *testing.T) {
	_, router := newTestAPI(t, nil)

	rr := do(t, router, http.MethodPut, "/v1/favorites/abc", strings.NewReader(`{"description":"a cat","urls":{"regular":"http://example.com/abc.jpg"}}`))
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/v1/favorites/def", strings.NewReader(`{"id":"def"}`))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/v1/favorites", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var photos []types.Photo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&photos))
	require.Len(t, photos, 2)
	assert.Equal(t, "abc", photos[0].ID)
	assert.Equal(t, "a cat", photos[0].Description)
	assert.Equal(t, "def", photos[1].ID)

	rr = do(t, router, http.MethodGet, "/v1/favorites/abc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"abc","favorite":true}`, rr.Body.String())

	rr = do(t, router, http.MethodDelete, "/v1/favorites/abc", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/v1/favorites/abc", nil)
	assert.JSONEq(t, `{"id":"abc","favorite":false}`, rr.Body.String())

	rr = do(t, router, http.MethodPut, "/v1/favorites/xyz", strings.NewReader(`{"id":"other"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPut, "/v1/favorites/xyz", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	_, router := newTestAPI(t, nil)

	rr := do(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"healthy":true,"database":"healthy"}`, rr.Body.String())

	do(t, router, http.MethodGet, "/v1/routines", nil)

	rr = do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "photosearch_http_request_duration_seconds")
}

func TestNotFound(t *testing.T) {
	_, router := newTestAPI(t, nil)

	rr := do(t, router, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

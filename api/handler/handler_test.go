package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photosearch/api/handler"
	"photosearch/cache/memory"
	"photosearch/health"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		Name                string
		AcceptHeader        string
		ExpectedContentType string
		ExpectedBody        string
	}{
		{
			Name:                "plain text error",
			ExpectedContentType: "text/plain; charset=utf-8",
			ExpectedBody:        "broken\n",
		},
		{
			Name:                "json error",
			AcceptHeader:        "application/json",
			ExpectedContentType: "application/json",
			ExpectedBody:        "{\"error\":\"broken\"}\n",
		},
	}

	h := handler.Handler(func(w http.ResponseWriter, r *http.Request) *handler.Error {
		return handler.BadRequest("broken")
	})

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.AcceptHeader != "" {
				r.Header.Set("Accept", test.AcceptHeader)
			}

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, r)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, test.ExpectedContentType, rr.Header().Get("Content-Type"))
			assert.Equal(t, test.ExpectedBody, rr.Body.String())
			assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	err := handler.WriteJSON(rr, http.StatusCreated, map[string]string{"a": "b"})
	require.Nil(t, err)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a":"b"}`, rr.Body.String())
}

func TestRecovery(t *testing.T) {
	log := zap.NewNop().Sugar()

	ts := httptest.NewServer(handler.Recovery(log, http.HandlerFunc(panicHandler)))
	defer ts.Close()

	res, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func panicHandler(rw http.ResponseWriter, req *http.Request) {
	panic("panicking handler")
}

func TestAddRequestID(t *testing.T) {
	var seen string
	h := handler.AddRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = handler.GetReqID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(handler.RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(handler.RequestIDHeader, "given-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	assert.Equal(t, "given-id", seen)
	assert.Equal(t, "given-id", rr.Header().Get(handler.RequestIDHeader))

	assert.Empty(t, handler.GetReqID(context.Background()))
}

func TestLoggerPassesThrough(t *testing.T) {
	h := handler.Logger(zap.NewNop().Sugar(), nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "tea", rr.Body.String())
}

func TestLoggerLevels(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/v1/process/{routine}", func(http.ResponseWriter, *http.Request) {}).Methods("POST").Name("process")

	tests := []struct {
		Name          string
		Status        int
		ExpectedLevel zapcore.Level
		ExpectedMsg   string
	}{
		{Name: "ok", Status: http.StatusOK, ExpectedLevel: zapcore.DebugLevel, ExpectedMsg: "Request completed"},
		{Name: "bad upload", Status: http.StatusBadRequest, ExpectedLevel: zapcore.InfoLevel, ExpectedMsg: "Request rejected"},
		{Name: "server error", Status: http.StatusInternalServerError, ExpectedLevel: zapcore.ErrorLevel, ExpectedMsg: "Request failed"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			h := handler.Logger(zap.New(core).Sugar(), &handler.MuxRouteMatcher{Router: router},
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(test.Status)
				}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/process/blur", strings.NewReader("abc")))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, test.ExpectedLevel, entries[0].Level)
			assert.Equal(t, test.ExpectedMsg, entries[0].Message)

			fields := entries[0].ContextMap()
			assert.Equal(t, "POST process", fields["route"])
			assert.Equal(t, int64(3), fields["bytes-read"])
			assert.Equal(t, "POST", fields["http-method"])
		})
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := handler.CORS([]string{"X-Request-Id"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://www.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.True(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-Id", rr.Header().Get("Access-Control-Expose-Headers"))

	called = false
	r = httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "http://www.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.False(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost))
}

func TestMuxRouteMatcher(t *testing.T) {
	router := mux.NewRouter()
	router.NotFoundHandler = http.NotFoundHandler()
	router.HandleFunc("/v1/favorites/{id}", func(http.ResponseWriter, *http.Request) {}).Methods("GET", "PUT")
	router.HandleFunc("/v1/search", func(http.ResponseWriter, *http.Request) {}).Methods("GET").Name("search")

	matcher := &handler.MuxRouteMatcher{Router: router}

	tests := []struct {
		Method   string
		URL      string
		Expected string
	}{
		{Method: http.MethodGet, URL: "/v1/favorites/abc", Expected: "GET /v1/favorites/{id}"},
		{Method: http.MethodPut, URL: "/v1/favorites/abc", Expected: "PUT /v1/favorites/{id}"},
		{Method: http.MethodGet, URL: "/v1/search?query=cats", Expected: "GET search"},
		{Method: http.MethodDelete, URL: "/v1/search", Expected: handler.RouteMethodNotAllowed},
		{Method: http.MethodGet, URL: "/missing", Expected: handler.RouteNotFound},
	}

	for _, test := range tests {
		assert.Equal(t, test.Expected, matcher.Match(httptest.NewRequest(test.Method, test.URL, nil)), test.Method+" "+test.URL)
	}
}

func TestHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthy := &health.Checker{Ctx: ctx, Cache: memory.New(0), Log: zap.NewNop().Sugar()}
	healthy.Run()

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	unhealthy := &health.Checker{Ctx: canceled, Cache: memory.New(0), Log: zap.NewNop().Sugar()}
	unhealthy.Run()

	tests := []struct {
		Name           string
		Checker        *health.Checker
		Method         string
		ExpectedStatus int
		ExpectedBody   string
		RetryAfter     string
	}{
		{Name: "healthy", Checker: healthy, Method: http.MethodGet, ExpectedStatus: http.StatusOK, ExpectedBody: `{"healthy":true,"cache":"healthy"}`},
		{Name: "unhealthy", Checker: unhealthy, Method: http.MethodGet, ExpectedStatus: http.StatusServiceUnavailable, ExpectedBody: `{"healthy":false}`, RetryAfter: "10"},
		{Name: "head", Checker: unhealthy, Method: http.MethodHead, ExpectedStatus: http.StatusServiceUnavailable, RetryAfter: "10"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Health(test.Checker).ServeHTTP(rr, httptest.NewRequest(test.Method, "/health", nil))

			assert.Equal(t, test.ExpectedStatus, rr.Code)
			assert.Equal(t, test.RetryAfter, rr.Header().Get("Retry-After"))
			assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
			if test.ExpectedBody == "" {
				assert.Empty(t, rr.Body.String())
			} else {
				assert.JSONEq(t, test.ExpectedBody, rr.Body.String())
			}
		})
	}
}

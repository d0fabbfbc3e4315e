package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"meraki-ap-monitor/internal/store"
)

func setupRouter(s store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(s, rate.Limit(1000), 1000)
}

func TestVersionBeforeFirstSnapshot(t *testing.T) {
	router := setupRouter(store.New())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/version", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVersionAfterPublish(t *testing.T) {
	s := store.New()
	s.Publish("deadbeef1234", []byte("<html></html>"))
	router := setupRouter(s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/version", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deadbeef1234", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
}

func TestReportRoutes(t *testing.T) {
	s := store.New()
	s.Publish("deadbeef1234", []byte("<html>report</html>"))
	router := setupRouter(s)

	for _, path := range []string{"/", "/index.html"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "<html>report</html>", w.Body.String())
	}
}

func TestReportBeforeFirstSnapshot(t *testing.T) {
	router := setupRouter(store.New())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUnknownPathFallsThroughToStaticFiles(t *testing.T) {
	router := setupRouter(store.New())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/no-such-file.html", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := store.New()
	s.Publish("v", []byte("doc"))
	gin.SetMode(gin.TestMode)
	router := NewRouter(s, rate.Limit(1), 1)

	first := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/version", nil)
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

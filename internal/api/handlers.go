package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meraki-ap-monitor/internal/store"
)

// GetVersion handles GET /version: the plain-text change-polling token. The
// page script fetches it every few seconds, so caching is disabled outright.
func GetVersion(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := s.Version()
		if err != nil {
			c.String(http.StatusServiceUnavailable, "report not ready")
			return
		}
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.String(http.StatusOK, token)
	}
}

// GetReport handles GET / and /index.html: the current rendered document.
func GetReport(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.Document()
		if err != nil {
			c.String(http.StatusServiceUnavailable, "report not ready")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
	}
}

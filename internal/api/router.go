package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"meraki-ap-monitor/internal/mw"
	"meraki-ap-monitor/internal/store"
)

// NewRouter creates and configures a new Gin router. No route ever triggers
// a fetch cycle; handlers only read the snapshot store.
func NewRouter(s store.Store, limit rate.Limit, burst int) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RateLimiter(limit, burst))

	r.GET("/version", GetVersion(s))

	page := GetReport(s)
	r.GET("/", page)
	r.GET("/index.html", page)

	// Anything else is a plain static-file request relative to the
	// working directory, where the durable report copy also lands.
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir("."))))

	return r
}

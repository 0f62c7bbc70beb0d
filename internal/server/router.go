package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the coordinator's gin engine.
func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/", h.Index)
	r.GET("/api/v1/last", h.LastJSON)

	r.POST("/report", h.Report)
	r.POST("/report/", h.Report)

	return r
}

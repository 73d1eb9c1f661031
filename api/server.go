package api

import (
	"github.com/gin-gonic/gin"

	"github.com/felixlab/polysin/api/handlers"
)

// NewRouter builds the REST API router.
func NewRouter(h *handlers.Handler) *gin.Engine {
	router := gin.Default()
	SetupRoutes(router, h)
	return router
}

// StartServer runs the REST API on addr, blocking until it exits.
func StartServer(addr string, h *handlers.Handler) error {
	return NewRouter(h).Run(addr)
}

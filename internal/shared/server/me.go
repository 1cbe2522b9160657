package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/shared/server/middleware"
	"chess-coach-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler echoes the identity the gateway resolved for the caller.
func meHandler(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	if ownerID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	respond.OK(c, gin.H{
		"ownerId": ownerID,
		"isGuest": middleware.IsGuest(c),
	})
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/shared/server/respond"
)

const (
	userIDKey  = "userId"
	isGuestKey = "isGuest"
	ownerKey   = "owner"

	// UserIDHeader carries the authenticated user id set by the gateway.
	UserIDHeader = "X-User-Id"
	// GuestIDHeader carries the guest session id for anonymous callers.
	GuestIDHeader = "X-Guest-Id"
)

// Identity resolves the caller from gateway headers. X-User-Id wins over
// X-Guest-Id; a request with neither is rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		var owner principal.Owner
		if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
			if principal.IsGuestID(userID) {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid user id", nil)
				return
			}
			owner = principal.AuthenticatedOwner{ID: userID}
		} else if guestID := strings.TrimSpace(c.GetHeader(GuestIDHeader)); guestID != "" {
			owner = principal.GuestOwner{SessionID: guestID}
		} else {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(ownerKey, owner)
		c.Set(userIDKey, owner.OwnerID())
		c.Set(isGuestKey, principal.IsGuest(owner))
		c.Next()
	}
}

// OwnerFromContext returns the caller resolved by Identity, or nil.
func OwnerFromContext(c *gin.Context) principal.Owner {
	if c == nil {
		return nil
	}
	val, _ := c.Get(ownerKey)
	owner, _ := val.(principal.Owner)
	return owner
}

// UserIDFromContext fetches the owner id set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsGuest reports whether the caller is a guest.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

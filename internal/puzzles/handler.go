package puzzles

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/shared/server/middleware"
	"chess-coach-backend/internal/shared/server/respond"
)

// Handler exposes read-only puzzle routes.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches puzzle routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/puzzles", h.list)
	rg.GET("/puzzles/:id", h.get)
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to collect puzzles", nil)
		return
	}
	ownerID := middleware.UserIDFromContext(c)

	if jobID := strings.TrimSpace(c.Query("jobId")); jobID != "" {
		c.Set(middleware.JobIDKey, jobID)
		all, err := h.Repo.ListBySourceJob(c.Request.Context(), jobID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list puzzles", nil)
			return
		}
		owned := make([]Puzzle, 0, len(all))
		for _, p := range all {
			if p.OwnerID == ownerID {
				owned = append(owned, p)
			}
		}
		respond.OK(c, owned)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, err := h.Repo.ListByOwner(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list puzzles", nil)
		return
	}
	respond.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.PuzzleIDKey, id)
	p, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "puzzle not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch puzzle", nil)
		}
		return
	}
	if p.OwnerID != middleware.UserIDFromContext(c) {
		respond.Error(c, http.StatusNotFound, "not_found", "puzzle not found", nil)
		return
	}
	respond.OK(c, p)
}

package analyses

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/shared/server/middleware"
	"chess-coach-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc  *Service
	poll *pollLimiter
}

// NewHandler constructs a Handler. A negative pollWindow disables the
// per-job polling limit; zero uses the default window.
func NewHandler(svc *Service, pollWindow time.Duration) *Handler {
	h := &Handler{Svc: svc}
	if pollWindow >= 0 {
		h.poll = newPollLimiter(pollWindow, nil)
	}
	return h
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.submit)
	rg.GET("/analyses", h.list)
	rg.GET("/analyses/:id", h.get)
}

type submitRequest struct {
	GameText     string         `json:"gameText"`
	SubjectName  string         `json:"subjectName"`
	SubjectColor string         `json:"subjectColor"`
	Metadata     games.Metadata `json:"metadata"`
}

func (h *Handler) submit(c *gin.Context) {
	owner := middleware.OwnerFromContext(c)
	if owner == nil {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.Submit(ctx, owner, SubmitInput{
		GameText:     req.GameText,
		SubjectName:  req.SubjectName,
		SubjectColor: req.SubjectColor,
		Metadata:     req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrEnqueueFailed):
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "analysis could not be scheduled", gin.H{"id": job.ID})
		case errors.Is(err, ErrProcessorNotReady):
			respond.Error(c, http.StatusServiceUnavailable, "not_configured", "analysis processing is not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit analysis", nil)
		}
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	respond.Accepted(c, c.FullPath()+"/"+job.ID, gin.H{
		"id":     job.ID,
		"status": job.Status,
	})
}

func (h *Handler) get(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}
	c.Set(middleware.JobIDKey, jobID)
	owner := middleware.OwnerFromContext(c)
	if owner == nil {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	if ok, wait := h.poll.Allow(owner.OwnerID(), jobID); !ok {
		retryAfterMs := int(wait / time.Millisecond)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		respond.Error(c, http.StatusTooManyRequests, "poll_too_frequent", "Polling too frequently", gin.H{"retryAfterMs": retryAfterMs})
		return
	}

	job, err := h.Svc.GetForOwner(c.Request.Context(), owner, jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	respond.OK(c, job)
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}
	ownerID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.Svc.List(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		item := gin.H{
			"id":           job.ID,
			"status":       job.Status,
			"subjectName":  job.SubjectName,
			"subjectColor": job.SubjectColor,
			"metadata":     job.Metadata,
			"createdAt":    job.CreatedAt,
		}
		if job.Status == StatusCompleted && job.Result != nil {
			item["summary"] = job.Result.Summary
			item["puzzleCount"] = len(job.Result.PuzzleIDs)
		}
		if job.Status == StatusFailed {
			item["errorCode"] = job.ErrorCode
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/planner"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 5 * time.Second

// Coach is the application surface the API exposes.
type Coach interface {
	GeneratePlanForUser(ctx context.Context, userID, goal string, force bool) (*planner.WeeklyPlan, error)
	CurrentPlan(ctx context.Context, userID string) (*planner.WeeklyPlan, error)
	Chat(ctx context.Context, userID string, day int, message string) (*app.ChatReply, error)
}

// Pinger checks connectivity to the AI provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	coach  Coach
	pinger Pinger
	log    *logger.Logger
}

func NewHandler(coach Coach, pinger Pinger, log *logger.Logger) *Handler {
	return &Handler{coach: coach, pinger: pinger, log: log.With("service", "HTTPAPI")}
}

// Health reports whether the AI provider answers.
func (h *Handler) Health(c *gin.Context) {
	if h.pinger == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		h.log.Warn("ai connectivity check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "ai": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": "ok"})
}

func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.coach.CurrentPlan(c.Request.Context(), c.GetString(userIDKey))
	if errors.Is(err, app.ErrNoPlan) {
		respondError(c, http.StatusNotFound, "no_plan", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	respondOK(c, plan)
}

type planRequest struct {
	Goal  string `json:"goal"`
	Force bool   `json:"force"`
}

// CreatePlan returns the user's plan, generating one when needed. Generation
// never fails outright; a degraded plan comes back with status FALLBACK.
func (h *Handler) CreatePlan(c *gin.Context) {
	var req planRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	plan, err := h.coach.GeneratePlanForUser(c.Request.Context(), c.GetString(userIDKey), req.Goal, req.Force)
	if err != nil && plan == nil {
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if err != nil {
		h.log.Warn("plan generated but not stored", "request_id", c.GetString(requestIDKey), "error", err)
	}
	respondOK(c, plan)
}

type chatRequest struct {
	Day     int    `json:"day"`
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Intent     planner.Intent            `json:"intent"`
	Response   string                    `json:"response"`
	Updated    bool                      `json:"updated"`
	Adjustment *planner.AdjustmentResult `json:"adjustment,omitempty"`
	Plan       *planner.WeeklyPlan       `json:"plan"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	reply, err := h.coach.Chat(c.Request.Context(), c.GetString(userIDKey), req.Day, req.Message)
	if errors.Is(err, app.ErrNoPlan) {
		respondError(c, http.StatusNotFound, "no_plan", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	respondOK(c, chatResponse{
		Intent:     reply.Result.Intent,
		Response:   reply.Result.ResponseText,
		Updated:    reply.Updated,
		Adjustment: reply.Result.Adjustment,
		Plan:       reply.Plan,
	})
}

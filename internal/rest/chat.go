package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"welfareBot/app/echo-server/metrics"
	"welfareBot/business/recommendation"
	"welfareBot/domain"
	"welfareBot/internal/middleware"
	"welfareBot/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	ChatService interface {
		Chat(ctx context.Context, req domain.ChatRequest, sessionID string) (domain.ChatResponse, error)
		Explain(ctx context.Context, userID uint, rawSignals []string, limit int) (recommendation.Explanation, error)
	}

	FollowupGenerator interface {
		GenerateFollowup(ctx context.Context, req domain.FollowupRequest) (string, error)
	}

	ChatHandler struct {
		chatService ChatService
		followup    FollowupGenerator
		validator   *validator.Validate
		timeout     time.Duration
	}

	ExplainRequest struct {
		UserID  uint     `json:"userId"`
		Signals []string `json:"signals" validate:"required,min=1,dive,max=50"`
		N       int      `json:"n" validate:"omitempty,min=1,max=50"`
	}

	FollowupResponse struct {
		Question string `json:"question"`
	}
)

func NewChatHandler(chatService ChatService, followup FollowupGenerator, timeout time.Duration) *ChatHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatHandler{
		chatService: chatService,
		followup:    followup,
		validator:   validator.New(),
		timeout:     timeout,
	}
}

// POST /api/v1/recommendations/chat
// A blocked decision is a normal 200 with no recommendations.
func (h *ChatHandler) Chat(c echo.Context) error {
	start := time.Now()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		metrics.ChatTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := h.validator.Struct(&req); err != nil {
		metrics.ChatTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	resp, err := h.chatService.Chat(ctx, req, middleware.SessionIDFromContext(c))
	metrics.ChatDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			metrics.ChatTotal.WithLabelValues("not_found").Inc()
			return c.JSON(http.StatusNotFound, ResponseError{Message: "user not found"})
		case errors.Is(err, recommendation.ErrExtraction):
			metrics.ChatTotal.WithLabelValues("extractor_error").Inc()
			logger.Error("Signal extraction failed", "user_id", req.UserID, "error", err)
			return c.JSON(http.StatusBadGateway, ResponseError{Message: "signal analysis is unavailable, please try again"})
		default:
			metrics.ChatTotal.WithLabelValues("error").Inc()
			logger.Error("Failed to handle chat", "user_id", req.UserID, "error", err)
			return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
		}
	}

	if resp.RecommendationIssued {
		metrics.ChatTotal.WithLabelValues("issued").Inc()
	} else {
		metrics.ChatTotal.WithLabelValues("blocked").Inc()
	}

	return c.JSON(http.StatusOK, resp)
}

// POST /api/v1/recommendations/followup
func (h *ChatHandler) Followup(c echo.Context) error {
	var req domain.FollowupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	question, err := h.followup.GenerateFollowup(ctx, req)
	if err != nil {
		logger.Error("Failed to generate followup", "error", err)
		return c.JSON(http.StatusBadGateway, ResponseError{Message: "followup question is unavailable"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(FollowupResponse{Question: question}))
}

// POST /api/v1/recommendations/explain
func (h *ChatHandler) Explain(c echo.Context) error {
	var req ExplainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	exp, err := h.chatService.Explain(ctx, req.UserID, req.Signals, req.N)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: "user not found"})
		}
		logger.Error("Failed to explain recommendation", "user_id", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

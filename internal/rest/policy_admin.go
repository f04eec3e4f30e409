package rest

import (
	"context"
	"net/http"
	"strconv"

	"welfareBot/business/policy"
	"welfareBot/business/signal"
	"welfareBot/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type MatchLogReader interface {
	FindByUser(ctx context.Context, userID uint, limit int) ([]domain.BenefitMatchLog, error)
}

type PolicyAdminHandler struct {
	table    *policy.Table
	ontology *signal.Ontology
	logs     MatchLogReader
}

func NewPolicyAdminHandler(table *policy.Table, ontology *signal.Ontology, logs MatchLogReader) *PolicyAdminHandler {
	return &PolicyAdminHandler{
		table:    table,
		ontology: ontology,
		logs:     logs,
	}
}

type PolicySnapshot struct {
	BoostCap                float64                     `json:"boostCap"`
	Engine                  policy.EngineSettings       `json:"engine"`
	BaseTagBoost            map[string]policy.BoostRule `json:"baseTagBoost"`
	SignalBoost             map[string]policy.BoostRule `json:"signalBoost"`
	CategoryKeywords        map[string][]string         `json:"categoryKeywords"`
	ReRecommendTriggers     []string                    `json:"reRecommendTriggers"`
	MinimalConditionSignals []string                    `json:"minimalConditionSignals"`
	CanonicalSignals        int                         `json:"canonicalSignals"`
}

// GET /api/v1/admin/policy
func (h *PolicyAdminHandler) GetPolicy(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(PolicySnapshot{
		BoostCap:                h.table.BoostCap(),
		Engine:                  h.table.Engine(),
		BaseTagBoost:            h.table.BaseTagRules(),
		SignalBoost:             h.table.SignalRules(),
		CategoryKeywords:        h.table.CategoryKeywords(),
		ReRecommendTriggers:     h.table.ReRecommendTriggers(),
		MinimalConditionSignals: h.ontology.MinimalConditionSignals(),
		CanonicalSignals:        h.ontology.CanonicalCount(),
	}))
}

// GET /api/v1/admin/users/:id/match-logs?limit=50
func (h *PolicyAdminHandler) GetMatchLogs(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user id"})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid limit"})
		}
		limit = n
	}

	logs, err := h.logs.FindByUser(c.Request().Context(), id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(logs))
}

package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"welfareBot/business/benefit"
	"welfareBot/domain"
	"welfareBot/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type BenefitService interface {
	Detail(ctx context.Context, rawID string) (domain.Benefit, error)
	Markers(ctx context.Context) ([]domain.Marker, error)
}

type BenefitHandler struct {
	benefitService BenefitService
	timeout        time.Duration
}

func NewBenefitHandler(benefitService BenefitService) *BenefitHandler {
	return &BenefitHandler{
		benefitService: benefitService,
		timeout:        10 * time.Second,
	}
}

// GET /api/v1/benefits/:benefitId
func (h *BenefitHandler) GetBenefit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	b, err := h.benefitService.Detail(ctx, c.Param("benefitId"))
	if err != nil {
		switch {
		case errors.Is(err, benefit.ErrInvalidBenefitID):
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		case errors.Is(err, benefit.ErrBenefitNotFound):
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		default:
			logger.Error("Failed to find benefit", "error", err)
			return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(b))
}

// GET /api/v1/benefits/locations
func (h *BenefitHandler) GetLocations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	markers, err := h.benefitService.Markers(ctx)
	if err != nil {
		logger.Error("Failed to list benefit locations", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(markers))
}

package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"welfareBot/business/benefit"
	"welfareBot/business/user"
	"welfareBot/domain"
	"welfareBot/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Register(ctx context.Context, in user.RegisterInput) (domain.UserProfile, error)
	LoginByName(ctx context.Context, name string) (domain.UserProfile, error)
	GetUserByID(ctx context.Context, id uint) (domain.UserProfile, error)
}

type RejectService interface {
	Reject(ctx context.Context, userID uint, benefitID string) error
}

type UserHandler struct {
	userService   UserService
	rejectService RejectService
	validator     *validator.Validate
	timeout       time.Duration
}

func NewUserHandler(userService UserService, rejectService RejectService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		rejectService: rejectService,
		validator:     validator.New(),
		timeout:       10 * time.Second,
	}
}

type UserRegisterRequest struct {
	Name      string   `json:"name" validate:"required"`
	Age       *int     `json:"age"`
	Residence string   `json:"residence"`
	BaseTags  []string `json:"baseTags"`
}

type UserLoginRequest struct {
	Name string `json:"name" validate:"required"`
}

type RejectBenefitRequest struct {
	BenefitID string `json:"benefitId" validate:"required"`
}

// POST /api/v1/users/register
func (h *UserHandler) Register(c echo.Context) error {
	var reqUser UserRegisterRequest

	if err := c.Bind(&reqUser); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&reqUser); err != nil {
		logger.Error("Failed to validate user register", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.Register(ctx, user.RegisterInput{
		Name:      reqUser.Name,
		Age:       reqUser.Age,
		Residence: reqUser.Residence,
		BaseTags:  reqUser.BaseTags,
	})
	if err != nil {
		if errors.Is(err, user.ErrInvalidRegister) {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		logger.Error("Failed to register user", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: "failed to register user"})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(profile))
}

// POST /api/v1/users/login
func (h *UserHandler) Login(c echo.Context) error {
	var reqUser UserLoginRequest

	if err := c.Bind(&reqUser); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&reqUser); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.LoginByName(ctx, reqUser.Name)
	if err != nil {
		return h.userError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

// GET /api/v1/users/:id
func (h *UserHandler) GetUserByID(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.GetUserByID(ctx, id)
	if err != nil {
		return h.userError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

// POST /api/v1/users/:id/reject-benefit
func (h *UserHandler) RejectBenefit(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user id"})
	}

	var req RejectBenefitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if _, err := h.userService.GetUserByID(ctx, id); err != nil {
		return h.userError(c, err)
	}

	if err := h.rejectService.Reject(ctx, id, req.BenefitID); err != nil {
		if errors.Is(err, benefit.ErrBenefitNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: "benefit not found"})
		}
		logger.Error("Failed to reject benefit", "user_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("benefit rejected"))
}

func (h *UserHandler) userError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "user not found"})
	}
	logger.Error("Failed to load user", "error", err)
	return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
}

func parseUserID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}

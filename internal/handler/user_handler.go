package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
	"tasktracker/internal/errors"
	"tasktracker/internal/service"
)

// UserHandler bundles user HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me godoc
// @Summary Current principal
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.Principal
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "authentication required",
			Code:  "UNAUTHENTICATED",
		})
	}
	return c.JSON(http.StatusOK, principal)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.User]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	users, err := h.svc.ListUsers(c.Request().Context(), page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

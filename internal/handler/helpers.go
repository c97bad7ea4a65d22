package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/errors"
	"tasktracker/internal/repository"
)

// httpError converts a service error into an echo error with an
// ErrorResponse body.
func httpError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  "VALIDATION_ERROR",
	})
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return uint(id), nil
}

// pageParams reads the page and size query parameters.
func pageParams(c echo.Context) (repository.PageRequest, error) {
	page, size := 0, repository.DefaultPageSize
	var err error
	if v := c.QueryParam("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return repository.PageRequest{}, badRequest("invalid page")
		}
	}
	if v := c.QueryParam("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			return repository.PageRequest{}, badRequest("invalid size")
		}
	}
	req, err := repository.NewPageRequest(page, size)
	if err != nil {
		return repository.PageRequest{}, httpError(err)
	}
	return req, nil
}

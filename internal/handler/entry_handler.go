package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"caltrack/internal/errors"
	"caltrack/internal/middleware"
	"caltrack/internal/service"
)

// EntryHandler handles the day view and the entry mutations, both the
// form-encoded page flow and the JSON API twins.
type EntryHandler struct {
	entries service.EntryService
}

// NewEntryHandler creates a new entry handler.
func NewEntryHandler(entries service.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// Day godoc
// @Summary Day view: entries plus running total against the goal
// @Tags entries
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} service.DaySummary
// @Failure 400 {object} errors.ErrorResponse
// @Router / [get]
func (h *EntryHandler) Day(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	summary, err := h.entries.DaySummary(c.Request().Context(), userID, c.QueryParam("date"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, summary)
}

// Create handles the form-encoded create submission.
func (h *EntryHandler) Create(c echo.Context) error {
	var input service.EntryInput
	if err := c.Bind(&input); err != nil {
		c.Logger().Warnf("create entry: bind: %v", err)
		return redirectForFailure(c, service.MutationResult{Status: service.MutationInvalid})
	}

	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Create(c.Request().Context(), userID, input)
	if !res.OK() {
		logMutationFailure(c, "create", res)
		return redirectForFailure(c, res)
	}
	return redirectToDay(c, input.OccurredOn)
}

// Update handles the form-encoded update submission.
func (h *EntryHandler) Update(c echo.Context) error {
	var input service.EntryInput
	if err := c.Bind(&input); err != nil {
		c.Logger().Warnf("update entry: bind: %v", err)
		return redirectForFailure(c, service.MutationResult{Status: service.MutationInvalid})
	}

	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Update(c.Request().Context(), userID, input)
	if !res.OK() {
		logMutationFailure(c, "update", res)
		return redirectForFailure(c, res)
	}
	return redirectToDay(c, input.OccurredOn)
}

// Delete handles the form-encoded delete submission.
func (h *EntryHandler) Delete(c echo.Context) error {
	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Delete(c.Request().Context(), userID, c.FormValue("id"))
	if !res.OK() {
		logMutationFailure(c, "delete", res)
		return redirectForFailure(c, res)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// ListEntries godoc
// @Summary List entries for a day
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} service.DaySummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/entries [get]
func (h *EntryHandler) ListEntries(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorizedJSON(c)
	}

	summary, err := h.entries.DaySummary(c.Request().Context(), userID, c.QueryParam("date"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, summary)
}

// CreateEntry godoc
// @Summary Create a food entry
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.EntryInput true "Entry data"
// @Success 201 {object} model.Entry
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/entries [post]
func (h *EntryHandler) CreateEntry(c echo.Context) error {
	var input service.EntryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Create(c.Request().Context(), userID, input)
	if !res.OK() {
		return mutationJSONError(c, res)
	}
	return c.JSON(http.StatusCreated, res.Entry)
}

// UpdateEntry godoc
// @Summary Update a food entry
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Param request body service.EntryInput true "Entry data"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/entries/{id} [put]
func (h *EntryHandler) UpdateEntry(c echo.Context) error {
	var input service.EntryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	input.ID = c.Param("id")

	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Update(c.Request().Context(), userID, input)
	if !res.OK() {
		return mutationJSONError(c, res)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteEntry godoc
// @Summary Delete a food entry
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/entries/{id} [delete]
func (h *EntryHandler) DeleteEntry(c echo.Context) error {
	userID, _ := middleware.CurrentUserID(c)
	res := h.entries.Delete(c.Request().Context(), userID, c.Param("id"))
	if !res.OK() {
		return mutationJSONError(c, res)
	}
	return c.NoContent(http.StatusNoContent)
}

func logMutationFailure(c echo.Context, op string, res service.MutationResult) {
	if res.Err != nil {
		c.Logger().Errorf("%s entry: %s: %v", op, res.Status, res.Err)
		return
	}
	c.Logger().Warnf("%s entry: %s %v", op, res.Status, res.Fields)
}

// redirectForFailure surfaces a failed mutation as a query flag on the main
// view, keeping the submission flow non-throwing.
func redirectForFailure(c echo.Context, res service.MutationResult) error {
	switch res.Status {
	case service.MutationUnauthorized:
		q := url.Values{}
		q.Set("next", "/")
		return c.Redirect(http.StatusSeeOther, "/login?"+q.Encode())
	case service.MutationStoreFailed:
		return c.Redirect(http.StatusSeeOther, "/?error=store")
	default:
		return c.Redirect(http.StatusSeeOther, "/?error=validation")
	}
}

func redirectToDay(c echo.Context, day string) error {
	q := url.Values{}
	q.Set("date", day)
	return c.Redirect(http.StatusSeeOther, "/?"+q.Encode())
}

func mutationJSONError(c echo.Context, res service.MutationResult) error {
	switch res.Status {
	case service.MutationInvalid:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: res.Fields,
		})
	case service.MutationUnauthorized:
		return unauthorizedJSON(c)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "store operation failed",
			Code:  "STORE_ERROR",
		})
	}
}

func unauthorizedJSON(c echo.Context) error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "not signed in",
		Code:  "UNAUTHORIZED",
	})
}

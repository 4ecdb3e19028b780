package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"caltrack/internal/errors"
	"caltrack/internal/service"
)

// FoodHandler handles the barcode lookup proxy.
type FoodHandler struct {
	lookup service.LookupService
}

// NewFoodHandler creates a new food handler.
func NewFoodHandler(lookup service.LookupService) *FoodHandler {
	return &FoodHandler{lookup: lookup}
}

// LookupBarcode godoc
// @Summary Look up nutrition data by barcode
// @Tags food
// @Produce json
// @Param barcode path string true "Barcode (non-digits are stripped)"
// @Success 200 {object} service.LookupResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /api/food/barcode/{barcode} [get]
func (h *FoodHandler) LookupBarcode(c echo.Context) error {
	clean := service.CleanBarcode(c.Param("barcode"))
	if clean == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "missing barcode",
			Code:  "MISSING_BARCODE",
		})
	}
	if !service.ValidEANCheckDigit(clean) {
		c.Logger().Debugf("barcode %s has no valid EAN check digit", clean)
	}

	result, err := h.lookup.Lookup(c.Request().Context(), clean)
	if err != nil {
		c.Logger().Errorf("barcode lookup %s: %v", clean, err)
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	if !result.Found {
		return c.JSON(http.StatusOK, echo.Map{"found": false})
	}
	return c.JSON(http.StatusOK, result)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"caltrack/internal/errors"
)

// LabelHandler handles the nutrition-label upload endpoint. Parsing is a
// stub: the upload is acknowledged and dropped.
// TODO: wire a vision model behind this once label extraction is scheduled.
type LabelHandler struct{}

// NewLabelHandler creates a new label handler.
func NewLabelHandler() *LabelHandler {
	return &LabelHandler{}
}

// LabelParseResponse is the stub acknowledgment.
type LabelParseResponse struct {
	OK       bool   `json:"ok"`
	Stub     bool   `json:"stub"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Message  string `json:"message"`
}

// Parse godoc
// @Summary Accept a nutrition-label photo (stub)
// @Tags food
// @Accept mpfd
// @Produce json
// @Param image formData file true "Nutrition label photo"
// @Success 200 {object} LabelParseResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/label/parse [post]
func (h *LabelHandler) Parse(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "expected multipart/form-data",
			Code:  "INVALID_CONTENT_TYPE",
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "missing image",
			Code:  "MISSING_IMAGE",
		})
	}

	return c.JSON(http.StatusOK, LabelParseResponse{
		OK:       true,
		Stub:     true,
		Filename: file.Filename,
		Bytes:    file.Size,
		Message:  "Stub endpoint. Nutrition label extraction is not implemented.",
	})
}

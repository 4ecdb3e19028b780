package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingBarcode is returned when a barcode is empty after cleaning.
	ErrMissingBarcode = errors.New("missing barcode")
	// ErrLookupUpstream is returned when the product database call fails.
	ErrLookupUpstream = errors.New("product lookup failed")
	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrMissingBarcode):
		return NewHTTPError(http.StatusBadRequest, ErrMissingBarcode.Error(), "MISSING_BARCODE")
	case errors.Is(err, ErrLookupUpstream):
		return NewHTTPError(http.StatusBadGateway, ErrLookupUpstream.Error(), "UPSTREAM_ERROR")
	case errors.Is(err, ErrInvalidDate):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidDate.Error(), "INVALID_DATE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict           = &AppError{Code: http.StatusConflict, Message: "conflict"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Message: "invalid email or password"}
	ErrEmailAlreadyExists = &AppError{Code: http.StatusConflict, Message: "email already registered"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrOwnershipViolation = &AppError{Code: http.StatusForbidden, Message: "access denied: ownership mismatch"}
	ErrTooManyRequests    = &AppError{Code: http.StatusTooManyRequests, Message: "too many requests"}
	ErrUpstreamTimeout    = &AppError{Code: http.StatusBadGateway, Message: "upstream provider timed out"}
	ErrUpstreamDown       = &AppError{Code: http.StatusBadGateway, Message: "upstream provider unreachable"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// NewUpstreamError tags a model-provider failure. The provider's status code
// is kept in the message so operators can tell a provider 429 from a 500
// without grepping upstream logs.
func NewUpstreamError(status int) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: fmt.Sprintf("upstream provider error (status %d)", status),
	}
}

// QuotaExceededError rejects a generation once the daily ceiling is hit.
// It carries the ceiling so the response body can tell the client when to
// stop retrying.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return "DAILY_LIMIT_REACHED"
}

type quotaExceededBody struct {
	Error string `json:"error"`
	Limit int    `json:"limit"`
	Reset string `json:"reset"`
}

func HandleError(w http.ResponseWriter, err error) {
	var quotaErr *QuotaExceededError
	if errors.As(err, &quotaErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(quotaExceededBody{
			Error: quotaErr.Error(),
			Limit: quotaErr.Limit,
			Reset: "tomorrow",
		})
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

// Package apierr maps domain errors to the JSON error responses the clinic
// API returns.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/db"
)

var (
	// ErrConflict is returned when a write would violate a uniqueness or
	// quantity constraint.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the caller's role may not perform the
	// change even though it may use the endpoint.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries the user-facing message of a rejected payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a *ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps ErrConflict with a user-facing message.
func Conflict(msg string) error {
	return &conflictError{msg: msg}
}

type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }
func (e *conflictError) Unwrap() error { return ErrConflict }

// Forbidden wraps ErrForbidden with a user-facing message.
func Forbidden(msg string) error {
	return &forbiddenError{msg: msg}
}

type forbiddenError struct{ msg string }

func (e *forbiddenError) Error() string { return e.msg }
func (e *forbiddenError) Unwrap() error { return ErrForbidden }

// Messages are the user-facing texts of one resource.
type Messages struct {
	// Failure is returned for unexpected errors, e.g. "Falha ao carregar agendamentos".
	Failure  string
	NotFound string
}

// ToHTTP converts err into an *echo.HTTPError using msgs for the generic
// cases. The original error is kept as Internal so the logger sees it.
func ToHTTP(err error, msgs Messages) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, msgs.NotFound)
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, db.ErrNoTenant), errors.Is(err, db.ErrTenantRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "tenant is required")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msgs.Failure).SetInternal(err)
	}
}

// Success writes the {"success": true} acknowledgement of a delete.
func Success(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// IDParam returns the :id route parameter, falling back to ?id= for the
// collection-level PUT and DELETE routes.
func IDParam(c echo.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.QueryParam("id")
}

// MissingID is returned when no record id was supplied.
func MissingID() error {
	return echo.NewHTTPError(http.StatusBadRequest, "ID é obrigatório")
}

// BadBody is returned when the request body cannot be decoded.
func BadBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
}

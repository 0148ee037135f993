package sessions

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel markers for failure classification. Operations tag errors with
// one of these via Wrap; callers branch with errors.Is and the API layer
// maps them to response codes with HTTPStatus.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrStateConflict   = errors.New("state conflict")
	ErrExternalProcess = errors.New("external process error")
	ErrForbidden       = errors.New("forbidden")

	// ErrInternal tags store and infrastructure faults that are no
	// caller's doing. It is the default marker.
	ErrInternal = errors.New("internal error")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a classified error to the response code the API layer
// should return. Unclassified errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrExternalProcess):
		return http.StatusBadGateway
	default:
		// ErrInternal and anything unclassified.
		return http.StatusInternalServerError
	}
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}

package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the JSON error envelope. Status is "fail" for client
// errors and "error" for server errors.
type ErrorResponse struct {
	Status     string         `json:"status"`
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message"`
	Fields     map[string]any `json:"fields,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewHTTPErrorHandler builds the JSON error boundary for the API. In
// production server errors are flattened to a generic message so internals
// never leak to clients.
func NewHTTPErrorHandler(logger Logger, production bool) func(c router.Context, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c router.Context, err error) error {
		if err == nil {
			return nil
		}

		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			fields := map[string]any{}
			for name, ferr := range fieldErrs {
				fields[name] = ferr.Error()
			}
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Status:     "fail",
				StatusCode: http.StatusBadRequest,
				Message:    "Validation failed",
				Fields:     fields,
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		statusCode := richErr.Code
		if statusCode == 0 {
			statusCode = statusForCategory(richErr.Category)
		}

		logger.Info(
			"HTTP error handler",
			"error", richErr.Message,
			"category", richErr.Category,
			"status", statusCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)

		message := richErr.Message
		body := ErrorResponse{
			StatusCode: statusCode,
			Message:    message,
		}

		if statusCode >= http.StatusInternalServerError {
			body.Status = "error"
			if production {
				body.Message = http.StatusText(http.StatusInternalServerError)
			}
		} else {
			body.Status = "fail"
		}

		if !production {
			body.Metadata = richErr.Metadata
		}

		return c.JSON(statusCode, body)
	}
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

package apierror

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Error codes exposed to clients.
const (
	CodeGeneral            = "be00001"
	CodeInvalidCredentials = "be00002"
	CodeUserAlreadyExists  = "be00003"
	CodeValidation         = "be00004"
	CodeTooManyRequests    = "be00005"
	CodeUnauthorized       = "be00006"
	CodeNotFound           = "be00007"
	CodeConflict           = "be00008"
)

const generalMessage = "General error."

// Error is an error destined for the client: status, stable code and a safe message.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a client-facing error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// General is the generic server error. It never carries internal detail.
func General() *Error {
	return New(http.StatusInternalServerError, CodeGeneral, generalMessage)
}

// InvalidCredentials is returned for any failed login.
func InvalidCredentials() *Error {
	return New(http.StatusUnauthorized, CodeInvalidCredentials, "Email or password is incorrect.")
}

// UserAlreadyExists is returned when signing up with a registered email.
func UserAlreadyExists() *Error {
	return New(http.StatusConflict, CodeUserAlreadyExists, "User with that email already exists.")
}

// Validation wraps a client input problem.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

// Unauthorized is returned for missing or invalid bearer tokens.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Body is the JSON shape of every error response.
type Body struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

// Handler renders every error reaching Fiber as a structured Body. Errors that
// are not *Error or *fiber.Error, and all 5xx errors, are logged and replaced
// by the generic server error.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		apiErr := classify(err)
		if apiErr.Status >= http.StatusInternalServerError {
			if logger != nil {
				logger.Error("request failed",
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.Any("error", err),
				)
			}
			apiErr = &Error{Status: apiErr.Status, Code: CodeGeneral, Message: generalMessage}
		}
		return c.Status(apiErr.Status).JSON(Body{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Message:   apiErr.Message,
			Code:      apiErr.Code,
		})
	}
}

func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return New(fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message)
	}
	return General()
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return CodeValidation
	}
	return CodeGeneral
}

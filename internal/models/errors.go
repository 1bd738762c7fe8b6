package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes for the domain error taxonomy. The HTTP layer maps each code
// to exactly one status; services never deal in status codes themselves.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeForbidden     = "FORBIDDEN"
	CodeInvalidPost   = "INVALID_POST"
	CodeIsAReply      = "IS_A_REPLY"
	CodeUserNotFound  = "USER_NOT_FOUND"
	CodeUsernameTaken = "USERNAME_TAKEN"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeValidation    = "VALIDATION_ERROR"
	CodeStorage       = "STORAGE_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

func NewPostNotFoundError() *AppError {
	return &AppError{Code: CodeNotFound, Message: "Post not found"}
}

func NewPostInvalidError() *AppError {
	return &AppError{Code: CodeInvalidPost, Message: "Post must have either text or media"}
}

func NewPostIsAReplyError() *AppError {
	return &AppError{Code: CodeIsAReply, Message: "Post is a reply and cannot have replies"}
}

func NewForbiddenError() *AppError {
	return &AppError{Code: CodeForbidden, Message: "You do not own this resource"}
}

func NewUserNotFoundError() *AppError {
	return &AppError{Code: CodeUserNotFound, Message: "User not found"}
}

func NewUsernameTakenError(username string) *AppError {
	return &AppError{Code: CodeUsernameTaken, Message: fmt.Sprintf("Username %q is already taken", username)}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewStorageError(err error) *AppError {
	return &AppError{Code: CodeStorage, Message: "Storage operation failed", Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// HTTPStatus resolves the status code for a domain error. Unknown errors
// surface as 500 without leaking internals.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound, CodeUserNotFound:
		return fiber.StatusNotFound
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeInvalidPost, CodeIsAReply, CodeValidation:
		return fiber.StatusBadRequest
	case CodeUsernameTaken:
		return fiber.StatusConflict
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && status < fiber.StatusInternalServerError {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{Error: "Internal server error", Code: CodeInternal}
	}

	return c.Status(status).JSON(response)
}

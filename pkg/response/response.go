package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
)

// Envelope is the common response contract shared by all JSON endpoints:
// {success, message, data}. Validation failures carry the field errors in
// data under "validation_errors".
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

// Success sends a 200 response with optional data and message.
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Raw sends an unwrapped payload. The login/refresh contract predates the
// envelope and returns the token payload directly.
func Raw(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, payload)
}

// NoContent responds with HTTP 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response converting the error to the common structure.
// Wrapped validator failures keep their per-field detail.
func Error(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		ValidationError(c, FieldErrors(fieldErrs))
		return
	}

	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Message: appErr.Message, Code: appErr.Code, Data: nil})
}

// ValidationError sends a 422 with the per-field errors in data.
func ValidationError(c *gin.Context, fieldErrors map[string]string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusUnprocessableEntity, Envelope{
		Success: false,
		Message: appErrors.ErrValidation.Message,
		Code:    appErrors.ErrValidation.Code,
		Data:    gin.H{"validation_errors": fieldErrors},
	})
}

// FieldErrors flattens validator failures into messages keyed by the
// lowercased field name.
func FieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters long", fe.Param())
	case "numeric":
		return "Must contain only digits"
	case "url":
		return "Must be a valid URL"
	default:
		return fmt.Sprintf("Failed validation rule %q", fe.Tag())
	}
}

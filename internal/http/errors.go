package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"auth-template/internal/service"
)

type fieldError struct {
	Field            string `json:"field"`
	ErrorDescription string `json:"error_description"`
}

var bindingNames sync.Once

// registerBindingNames makes gin's validator report fields by their JSON names.
func registerBindingNames() {
	bindingNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func abortDetail(c *gin.Context, status int, detail any) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func abortValidation(c *gin.Context, errs ...fieldError) {
	abortDetail(c, http.StatusUnprocessableEntity, gin.H{"errors": errs})
}

// bindJSON decodes the body into req, answering 422 when it is malformed or invalid.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var (
			verrs    validator.ValidationErrors
			typeErr  *json.UnmarshalTypeError
			fieldErr fieldError
		)
		switch {
		case errors.As(err, &verrs):
			abortValidation(c, describeAll(verrs)...)
			return false
		case errors.As(err, &typeErr) && typeErr.Field != "":
			fieldErr = fieldError{
				Field:            typeErr.Field,
				ErrorDescription: "Input should be a valid " + typeErr.Type.String(),
			}
		default:
			fieldErr = fieldError{Field: "Request body", ErrorDescription: "JSON parse error"}
		}
		abortValidation(c, fieldErr)
		return false
	}
	return true
}

func describeAll(verrs validator.ValidationErrors) []fieldError {
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), ErrorDescription: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		if text {
			return fmt.Sprintf("String should have at least %s characters", fe.Param())
		}
		return "Input should be greater than or equal to " + fe.Param()
	case "max":
		if text {
			return fmt.Sprintf("String should have at most %s characters", fe.Param())
		}
		return "Input should be less than or equal to " + fe.Param()
	case "gt":
		return "Input should be greater than " + fe.Param()
	case "oneof":
		return "Input should be " + strings.Join(strings.Fields(fe.Param()), ", ")
	}
	return fe.Error()
}

// fail maps a service error onto the response envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		verrs    validator.ValidationErrors
		cooldown *service.CooldownError
		writeErr *service.WriteError
	)
	switch {
	case errors.As(err, &verrs):
		abortValidation(c, describeAll(verrs)...)
	case errors.As(err, &cooldown):
		abortDetail(c, http.StatusBadRequest, fmt.Sprintf("Try again in %d seconds", cooldown.Seconds()))
	case errors.Is(err, service.ErrAlreadyLoggedIn):
		abortDetail(c, http.StatusAlreadyReported, "You are logged in.")
	case errors.Is(err, service.ErrUserNotFound):
		abortDetail(c, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrUserInactive):
		abortDetail(c, http.StatusForbidden, "User no longer exist")
	case errors.Is(err, service.ErrOTPNotRequested):
		abortDetail(c, http.StatusBadRequest, "User has not requested OTP yet")
	case errors.Is(err, service.ErrTooManyAttempts):
		abortDetail(c, http.StatusTooManyRequests, "Too many attempts. Try again later")
	case errors.Is(err, service.ErrOTPExpired):
		abortDetail(c, http.StatusBadRequest, "OTP expired")
	case errors.Is(err, service.ErrIncorrectOTP):
		abortDetail(c, http.StatusBadRequest, "Incorrect OTP")
	case errors.Is(err, service.ErrMailUnavailable):
		abortDetail(c, http.StatusServiceUnavailable, "Could not sent email")
	case errors.Is(err, service.ErrForbidden):
		abortDetail(c, http.StatusForbidden, "Operation not permitted")
	case errors.Is(err, service.ErrInvalidImage):
		abortDetail(c, http.StatusBadRequest, "Invalid image")
	case errors.Is(err, service.ErrEmailTaken):
		abortDetail(c, http.StatusBadRequest, "User with the email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		abortDetail(c, http.StatusBadRequest, "Invalid Username Or Password")
	case errors.As(err, &writeErr):
		h.logger.WithField("path", c.Request.URL.Path).Errorf("db write: %v", writeErr.Err)
		abortDetail(c, http.StatusInternalServerError, gin.H{
			"message": "Could not perform DB operation",
			"cause":   writeErr.Err.Error(),
		})
	case errors.Is(err, service.ErrStorageUnavailable):
		h.logger.WithField("path", c.Request.URL.Path).Errorf("image store: %v", err)
		abortDetail(c, http.StatusServiceUnavailable, "Could not store image")
	case errors.Is(err, service.ErrUnavailable):
		h.logger.WithField("path", c.Request.URL.Path).Errorf("db read: %v", err)
		abortDetail(c, http.StatusServiceUnavailable, "DB Service Unavailable")
	default:
		h.logger.WithField("path", c.Request.URL.Path).Errorf("unhandled error: %v", err)
		abortDetail(c, http.StatusInternalServerError, "Internal Server Error")
	}
}

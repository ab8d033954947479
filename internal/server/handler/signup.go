// Package handler exposes the signup workflows over HTTP. Responses follow a
// uniform envelope: {success, message, ...} with an errors array on
// validation failures.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lapra-tech/backend/internal/signup/service"
)

// SignupHandler handles register, verify-otp, resend-otp, and check-limit.
type SignupHandler struct {
	svc *service.SignupService
	// echoOTP includes the plaintext OTP in register/resend responses.
	// Only ever true in development; config refuses it in production.
	echoOTP bool
	// devErrors includes the underlying error message in 500 responses.
	devErrors bool
}

// NewSignupHandler returns a SignupHandler for the given service.
// echoOTP and devErrors must only be true in development mode.
func NewSignupHandler(svc *service.SignupService, echoOTP, devErrors bool) *SignupHandler {
	return &SignupHandler{svc: svc, echoOTP: echoOTP, devErrors: devErrors}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile" binding:"required,len=10,number"`
	Password string `json:"password" binding:"required,min=8"`
}

type verifyOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

type resendOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// CheckLimit reports whether the verified-user cap has been reached.
func (h *SignupHandler) CheckLimit(c *gin.Context) {
	status, err := h.svc.Limit(c.Request.Context())
	if err != nil {
		h.serverError(c, "Server error while checking limit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"limitReached":  status.LimitReached,
		"verifiedCount": status.VerifiedCount,
		"maxUsers":      status.MaxUsers,
	})
}

// Register creates a pending user and sends an OTP, or resends the OTP when
// the same email is already pending.
func (h *SignupHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyVerified):
			h.fail(c, http.StatusBadRequest, "This email is already registered and verified")
		case errors.Is(err, service.ErrMobileAlreadyVerified):
			h.fail(c, http.StatusBadRequest, "This mobile number is already registered and verified")
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			h.fail(c, http.StatusBadRequest, "This email is already registered")
		case errors.Is(err, service.ErrMobileAlreadyRegistered):
			h.fail(c, http.StatusBadRequest, "This mobile number is already registered")
		default:
			h.serverError(c, "Server error during registration", err)
		}
		return
	}

	if result.Resent {
		body := gin.H{
			"success": true,
			"message": "OTP resent to your email",
			"userId":  result.UserID,
		}
		if h.echoOTP {
			body["otp"] = result.OTP
		}
		c.JSON(http.StatusOK, body)
		return
	}

	body := gin.H{
		"success": true,
		"message": "Registration successful! OTP sent to your email",
		"userId":  result.UserID,
	}
	if h.echoOTP {
		body["otp"] = result.OTP
	}
	c.JSON(http.StatusCreated, body)
}

// VerifyOTP confirms the submitted code and claims a registration slot.
func (h *SignupHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "User ID and OTP are required")
		return
	}

	order, err := h.svc.VerifyOTP(c.Request.Context(), req.UserID, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			h.fail(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrAlreadyVerified):
			h.fail(c, http.StatusBadRequest, "User is already verified")
		case errors.Is(err, service.ErrInvalidOTP):
			h.fail(c, http.StatusBadRequest, "Invalid or expired OTP")
		case errors.Is(err, service.ErrSlotsExhausted):
			c.JSON(http.StatusForbidden, gin.H{
				"success":      false,
				"message":      "Sorry you are late. All the free access slots have been filled.",
				"limitReached": true,
			})
		default:
			h.serverError(c, "Server error during verification", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "You claimed the free access. You can close this window now.",
		"registrationOrder": order,
	})
}

// ResendOTP reissues the OTP for a pending user.
func (h *SignupHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	result, err := h.svc.ResendOTP(c.Request.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			h.fail(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrAlreadyVerified):
			h.fail(c, http.StatusBadRequest, "User is already verified")
		default:
			h.serverError(c, "Failed to resend OTP", err)
		}
		return
	}

	body := gin.H{
		"success": true,
		"message": "OTP resent successfully",
	}
	if h.echoOTP {
		body["otp"] = result.OTP
	}
	c.JSON(http.StatusOK, body)
}

func (h *SignupHandler) fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (h *SignupHandler) serverError(c *gin.Context, message string, err error) {
	body := gin.H{"success": false, "message": message}
	if h.devErrors {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// validationErrors flattens a binding error into a list of {field, message}
// entries covering every violated field.
func validationErrors(err error) []gin.H {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []gin.H{{"message": "Invalid request body"}}
	}
	out := make([]gin.H, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, gin.H{
			"field":   fieldName(fe.Field()),
			"message": fieldMessage(fe),
		})
	}
	return out
}

func fieldName(structField string) string {
	switch structField {
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "Mobile":
		return "mobile"
	case "Password":
		return "password"
	}
	return structField
}

func fieldMessage(fe validator.FieldError) string {
	switch fieldName(fe.Field()) {
	case "name":
		return "Name must be at least 2 characters"
	case "email":
		return "Please provide a valid email"
	case "mobile":
		return "Please provide a valid 10-digit mobile number"
	case "password":
		return "Password must be at least 8 characters"
	}
	return fmt.Sprintf("Invalid value for %s", fe.Field())
}

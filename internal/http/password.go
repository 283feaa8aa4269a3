package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-template/internal/service"
)

// Password based routes kept next to the OTP flow.

type signUpRequest struct {
	Name     string `json:"name" binding:"required,max=225"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type passwordLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.auth.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "User created successfully", "email": user.Email})
}

func (h *Handler) passwordLogin(c *gin.Context) {
	var req passwordLoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, access, err := h.auth.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Login Successfully", "email": user.Email, "token": access})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
	if errors.Is(err, service.ErrUserNotFound) {
		abortDetail(c, http.StatusBadRequest, "User Not found with this email")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Password updated successfully"})
}

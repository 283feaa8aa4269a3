package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-template/internal/service"
	"auth-template/internal/token"
)

type requestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type tokenRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

func (h *Handler) requestOTP(c *gin.Context) {
	var req requestOTPRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{"detail": "OTP sent to email"}
	if res.OTP != "" {
		resp["otp"] = res.OTP
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) issueTokens(c *gin.Context) {
	var req tokenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.auth.IssueTokens(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"username":      res.Username,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"is_new_user":   res.IsNewUser,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	raw, err := token.Extract(c.Request, token.RefreshCookie)
	if err == nil {
		var access string
		access, err = h.auth.Refresh(c.Request.Context(), raw)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"access_token": access})
			return
		}
	}

	switch {
	case errors.Is(err, token.ErrTokenMissing):
		abortDetail(c, http.StatusBadRequest, "Provide refresh token")
	case errors.Is(err, token.ErrTokenExpired):
		abortDetail(c, http.StatusUnauthorized, "Refresh token has expired, login again")
	case errors.Is(err, token.ErrTokenInvalid), errors.Is(err, token.ErrWrongTokenType), errors.Is(err, token.ErrBadHeader):
		abortDetail(c, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, service.ErrUserNotFound):
		abortDetail(c, http.StatusUnauthorized, "The user belonging to this token no longer exist")
	default:
		h.fail(c, err)
	}
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), callerFrom(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"auth-template/internal/domain"
	"auth-template/internal/service"
)

func (h *Handler) createProfile(c *gin.Context) {
	var req domain.NewProfile
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.profiles.CreateProfile(c.Request.Context(), callerFrom(c), c.Param("username"), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"details": "Profile added"})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req domain.ProfileUpdate
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.profiles.UpdateProfile(c.Request.Context(), callerFrom(c), c.Param("username"), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"details": "Profile updated"})
}

func (h *Handler) getProfile(c *gin.Context) {
	view, err := h.profiles.GetProfile(c.Request.Context(), callerFrom(c), c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxImageSize+1<<20)
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, service.ErrInvalidImage)
			return
		}
		abortValidation(c, fieldError{Field: "image", ErrorDescription: "Field required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	view, err := h.profiles.UploadImage(c.Request.Context(), callerFrom(c), c.Param("username"), file)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	users, err := h.profiles.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

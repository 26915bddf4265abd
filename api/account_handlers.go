package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"concorda/auth"
	"concorda/profile"
)

func (h *Handler) register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	user, err := h.svc.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "created_at": user.CreatedAt})
}

func (h *Handler) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := h.svc.Accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       gin.H{"id": res.User.ID, "email": res.User.Email},
	})
}

func (h *Handler) updatePassword(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req auth.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.svc.Accounts.UpdatePassword(c.Request.Context(), userID, req); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	p, err := h.svc.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(p))
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req profile.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, err := h.svc.Profiles.Update(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(p))
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"concorda/agreement"
	"concorda/preference"
	"concorda/tip"
)

type suggestionRequest struct {
	Description string `json:"description"`
	Tone        string `json:"tone"`
	Category    string `json:"category"`
}

func (r suggestionRequest) parse() (string, agreement.Tone, agreement.Category, error) {
	description := strings.TrimSpace(r.Description)
	tone := agreement.Tone(r.Tone)
	category := agreement.Category(r.Category)
	if description == "" {
		return "", "", "", fmt.Errorf("%w: description required", errBadRequest)
	}
	if !tone.Valid() || !category.Valid() {
		return "", "", "", fmt.Errorf("%w: unknown tone or category", errBadRequest)
	}
	return description, tone, category, nil
}

func (h *Handler) bindSuggestion(c *gin.Context) (string, agreement.Tone, agreement.Category, bool) {
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return "", "", "", false
	}
	description, tone, category, err := req.parse()
	if err != nil {
		h.handleError(c, err)
		return "", "", "", false
	}
	return description, tone, category, true
}

func (h *Handler) suggestRules(c *gin.Context) {
	description, tone, category, ok := h.bindSuggestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Suggester.Rules(c.Request.Context(), description, tone, category))
}

func (h *Handler) suggestPenalties(c *gin.Context) {
	description, tone, category, ok := h.bindSuggestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Suggester.Penalties(c.Request.Context(), description, tone, category))
}

func (h *Handler) suggestTitle(c *gin.Context) {
	description, tone, category, ok := h.bindSuggestion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": h.svc.Suggester.Title(c.Request.Context(), description, tone, category)})
}

func (h *Handler) todayTip(c *gin.Context) {
	t, err := h.svc.Tips.Today(c.Request.Context())
	if errors.Is(err, tip.ErrUnavailable) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) listTips(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.handleError(c, err)
		return
	}
	items, err := h.svc.Tips.List(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getPreferences(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	p, err := h.svc.Preferences.Load(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) savePreferences(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req preference.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, err := h.svc.Preferences.Save(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	p, err := h.svc.Preferences.ToggleFavorite(c.Request.Context(), userID, c.Param("tipId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) dashboard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	s, err := h.svc.Dashboard.Summary(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDashboard(s))
}

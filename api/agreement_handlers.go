package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"concorda/agreement"
	"concorda/export"
)

type createAgreementRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Tone         string   `json:"tone"`
	Validity     string   `json:"validity"`
	Penalty      string   `json:"penalty"`
	Participants []string `json:"participants"`
	Rules        []string `json:"rules"`
}

type signaturesRequest struct {
	Signatures map[string]string `json:"signatures"`
}

type extendRequest struct {
	Validity string `json:"validity"`
}

func (h *Handler) createAgreement(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req createAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	a, err := h.svc.Agreements.Create(c.Request.Context(), userID, agreement.CreateParams{
		Title:        req.Title,
		Description:  req.Description,
		Category:     agreement.Category(req.Category),
		Tone:         agreement.Tone(req.Tone),
		Validity:     req.Validity,
		Penalty:      req.Penalty,
		Participants: req.Participants,
		Rules:        req.Rules,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAgreement(a))
}

func (h *Handler) getAgreement(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	a, err := h.svc.Agreements.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAgreement(a))
}

func (h *Handler) listAgreements(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	filters, err := parseListFilters(c, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	items, total, err := h.svc.Agreements.List(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toAgreements(items), "total": total})
}

func parseListFilters(c *gin.Context, userID string) (agreement.ListFilters, error) {
	filters := agreement.ListFilters{
		OwnerID:  userID,
		Category: agreement.Category(strings.TrimSpace(c.Query("category"))),
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filters.Statuses = append(filters.Statuses, agreement.Status(raw))
		}
	}
	var err error
	if filters.Page, err = queryInt(c, "page"); err != nil {
		return filters, err
	}
	if filters.PageSize, err = queryInt(c, "page_size"); err != nil {
		return filters, err
	}
	return filters, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, key)
	}
	return n, nil
}

func (h *Handler) ratify(c *gin.Context) {
	h.sign(c, agreement.FlowRatify, h.svc.Lifecycle.Ratify)
}

func (h *Handler) complete(c *gin.Context) {
	h.sign(c, agreement.FlowCloseSuccess, h.svc.Lifecycle.Complete)
}

func (h *Handler) fail(c *gin.Context) {
	h.sign(c, agreement.FlowCloseFailure, h.svc.Lifecycle.Fail)
}

type signedTransition func(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error)

// sign collects the submitted signature images for the agreement's current
// participants and runs the transition.
func (h *Handler) sign(c *gin.Context, flow agreement.Flow, run signedTransition) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req signaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	current, err := h.svc.Lifecycle.Load(ctx, userID, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	sigs := agreement.NewCollector(flow, current.Participants)
	for participantID, raw := range req.Signatures {
		img, err := agreement.ParseSignatureImage(raw)
		if err != nil {
			h.handleError(c, err)
			return
		}
		if err := sigs.Capture(participantID, img); err != nil {
			h.handleError(c, err)
			return
		}
	}

	a, err := run(ctx, userID, id, sigs)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAgreement(a))
}

func (h *Handler) extend(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	a, err := h.svc.Lifecycle.Extend(c.Request.Context(), userID, c.Param("id"), req.Validity)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAgreement(a))
}

func (h *Handler) templates(c *gin.Context) {
	category := agreement.Category(strings.TrimSpace(c.Query("category")))
	if category != "" && !category.Valid() {
		h.handleError(c, fmt.Errorf("%w: unknown category %q", errBadRequest, category))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": agreement.Templates(category)})
}

func (h *Handler) certificate(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	a, err := h.svc.Agreements.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := export.Certificate(a)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"acordo-%s.pdf\"", a.ID))
	c.Data(http.StatusOK, "application/pdf", content)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) exportHistory(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var all []agreement.Agreement
	for page := 1; ; page++ {
		items, total, err := h.svc.Agreements.List(ctx, agreement.ListFilters{OwnerID: userID, Page: page, PageSize: 100})
		if err != nil {
			h.handleError(c, err)
			return
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			break
		}
	}

	content, err := export.HistorySheet(all)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"acordos.xlsx\"")
	c.Data(http.StatusOK, xlsxContentType, content)
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"concorda/agreement"
	"concorda/auth"
	"concorda/profile"
	"concorda/tip"
)

var errBadRequest = errors.New("bad request")

var badRequest = []error{
	errBadRequest,
	agreement.ErrValidation,
	agreement.ErrEmptyValidity,
	agreement.ErrIncompleteSignatures,
	agreement.ErrInvalidSignature,
	agreement.ErrUnknownParticipant,
	auth.ErrWeakPassword,
	auth.ErrMissingFields,
	profile.ErrNameRequired,
}

var notFound = []error{
	agreement.ErrNotFound,
	auth.ErrUserNotFound,
	profile.ErrNotFound,
	tip.ErrNotFound,
}

var conflict = []error{
	agreement.ErrInvalidTransition,
	agreement.ErrTransitionInProgress,
	auth.ErrDuplicateEmail,
}

func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"error": "internal error", "detail": err.Error()}
	if id, ok := agreement.IsPartialCreate(err); ok {
		h.log.Warn().Err(err).Str("agreement_id", id).Msg("agreement created partially")
		body["agreement_id"] = id
	} else {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, body)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

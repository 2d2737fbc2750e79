package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/core/async"
	"github.com/joseph-ayodele/claims-intake/internal/intake"
	"github.com/joseph-ayodele/claims-intake/internal/preview"
	"github.com/joseph-ayodele/claims-intake/internal/review"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
	"github.com/joseph-ayodele/claims-intake/internal/store"
	"github.com/joseph-ayodele/claims-intake/internal/submit"
)

// writeError maps a component error to a status and code.
func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= 500 {
		common.LoggerFromContext(c.Request.Context(), nil).Error("request failed", "error", err)
	}
	respond.Error(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	var se *submit.SubmissionError
	if errors.As(err, &se) {
		switch se.Reason {
		case submit.ReasonUnknownItem:
			return http.StatusNotFound, se.Reason
		case submit.ReasonInvalid:
			return http.StatusUnprocessableEntity, se.Reason
		case submit.ReasonUnavailable:
			return http.StatusBadGateway, se.Reason
		default:
			return http.StatusConflict, se.Reason
		}
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, preview.ErrUnknownRef):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, intake.ErrItemBusy):
		return http.StatusConflict, "item_busy"
	case errors.Is(err, review.ErrNotEditing):
		return http.StatusConflict, "not_editing"
	case errors.Is(err, review.ErrNotEditable):
		return http.StatusConflict, "not_editable"
	case errors.Is(err, review.ErrInvalidClaimType):
		return http.StatusBadRequest, "invalid_claim_type"
	case errors.Is(err, review.ErrUnknownField):
		return http.StatusBadRequest, "unknown_field"
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, store.ErrClosed), errors.Is(err, preview.ErrClosed), errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

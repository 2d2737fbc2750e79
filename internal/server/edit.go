package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/review"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
)

type draftResponse struct {
	Mode  review.Mode   `json:"mode"`
	Draft *review.Draft `json:"draft,omitempty"`
}

type updateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *handlers) startEditing(c *gin.Context) {
	id := c.Param("id")
	c.Set("itemId", id)
	d, err := h.Editor.StartEditing(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, draftResponse{Mode: review.ModeEditing, Draft: &d})
}

func (h *handlers) currentDraft(c *gin.Context) {
	d, ok := h.Editor.Current()
	if !ok {
		respond.OK(c, draftResponse{Mode: h.Editor.Mode()})
		return
	}
	respond.OK(c, draftResponse{Mode: review.ModeEditing, Draft: &d})
}

// updateDraft applies a single field edit to the open draft.
func (h *handlers) updateDraft(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	d, err := h.Editor.Update(entity.FieldName(req.Field), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, draftResponse{Mode: review.ModeEditing, Draft: &d})
}

func (h *handlers) saveDraft(c *gin.Context) {
	item, err := h.Editor.Save(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("itemId", item.ID)
	respond.OK(c, item)
}

func (h *handlers) cancelDraft(c *gin.Context) {
	h.Editor.Cancel()
	c.Status(http.StatusNoContent)
}

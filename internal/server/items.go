package server

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
)

func (h *handlers) listItems(c *gin.Context) {
	items, err := h.Items.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []entity.IntakeItem{}
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *handlers) getItem(c *gin.Context) {
	id := c.Param("id")
	c.Set("itemId", id)
	item, err := h.Items.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, item)
}

// preview streams the original upload back, inline for raster images and PDFs.
func (h *handlers) preview(c *gin.Context) {
	id := c.Param("id")
	c.Set("itemId", id)
	item, err := h.Items.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.Previews.Open(item.PreviewRef)
	if err != nil {
		writeError(c, err)
		return
	}
	disposition, csp := "attachment", previewCSP+"; sandbox"
	if inlinePreviewTypes[p.MediaType] {
		disposition, csp = "inline", previewCSP
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": p.Filename}))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", csp)
	c.Data(http.StatusOK, p.MediaType, p.Content)
}

const previewCSP = "default-src 'none'; img-src 'self'; object-src 'self'"

// inlinePreviewTypes are rendered in the browser; anything else that passed
// intake as image/* (svg in particular) is downloaded instead.
var inlinePreviewTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/bmp":       true,
}

func (h *handlers) removeItem(c *gin.Context) {
	id := c.Param("id")
	c.Set("itemId", id)
	if err := h.Intake.Remove(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	h.Editor.Discard(id)
	c.Status(http.StatusNoContent)
}

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/repository"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
)

func (h *handlers) submit(c *gin.Context) {
	id := c.Param("id")
	c.Set("itemId", id)
	r, err := h.Submitter.Submit(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, r)
}

// listSubmissions reads the SQL claims ledger; ?limit= defaults to 100.
func (h *handlers) listSubmissions(c *gin.Context) {
	if h.Submissions == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "submission ledger is not enabled")
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, fmt.Errorf("%w: limit must be a positive integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	rows, err := h.Submissions.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []repository.Submission{}
	}
	respond.OK(c, gin.H{"submissions": rows})
}

// notifications returns events after ?after= (exclusive).
func (h *handlers) notifications(c *gin.Context) {
	var after uint64
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: after must be a sequence number", common.ErrInvalidInput))
			return
		}
		after = n
	}
	events := h.Notifications.Since(after)
	if events == nil {
		events = []notify.Event{}
	}
	last := after
	if len(events) > 0 {
		last = events[len(events)-1].Seq
	}
	respond.OK(c, gin.H{"events": events, "last": last})
}

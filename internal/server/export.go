package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *handlers) exportXLSX(c *gin.Context) {
	b, err := h.Exporter.ExportItemsXLSX(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	name := "claims-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/export"
	"github.com/joseph-ayodele/claims-intake/internal/intake"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/preview"
	"github.com/joseph-ayodele/claims-intake/internal/repository"
	"github.com/joseph-ayodele/claims-intake/internal/review"
	"github.com/joseph-ayodele/claims-intake/internal/server/middleware"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
	"github.com/joseph-ayodele/claims-intake/internal/submit"
)

type Intake interface {
	Admit(ctx context.Context, files []intake.File) (intake.AdmitResult, error)
	Remove(ctx context.Context, id string) error
}

type Items interface {
	Get(ctx context.Context, id string) (entity.IntakeItem, error)
	List(ctx context.Context) ([]entity.IntakeItem, error)
}

type Previews interface {
	Open(ref string) (preview.Preview, error)
}

type Editor interface {
	StartEditing(ctx context.Context, id string) (review.Draft, error)
	Update(field entity.FieldName, value string) (review.Draft, error)
	Save(ctx context.Context) (entity.IntakeItem, error)
	Cancel()
	Current() (review.Draft, bool)
	Mode() review.Mode
	Discard(id string)
}

type Submitter interface {
	Submit(ctx context.Context, id string) (submit.Receipt, error)
}

type Notifications interface {
	Since(after uint64) []notify.Event
}

type Exporter interface {
	ExportItemsXLSX(ctx context.Context) ([]byte, error)
}

// SubmissionLister reads back the claims ledger; nil when the sink is not SQL.
type SubmissionLister interface {
	List(ctx context.Context, limit int) ([]repository.Submission, error)
}

// Deps are the components the HTTP surface drives.
type Deps struct {
	Intake        Intake
	Items         Items
	Previews      Previews
	Editor        Editor
	Submitter     Submitter
	Notifications Notifications
	Exporter      Exporter
	Submissions   SubmissionLister
	// Health reports backing-store health; nil means always healthy.
	Health func(ctx context.Context) error
}

// HealthTimeout bounds the backing-store probe of GET /health.
const HealthTimeout = 2 * time.Second

type RouterConfig struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

var _ Exporter = (*export.Service)(nil)

type handlers struct {
	Deps
	logger *slog.Logger
}

// NewRouter constructs the gin engine with middleware and routes registered.
func NewRouter(cfg RouterConfig, deps Deps, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found")
	})

	h := &handlers{Deps: deps, logger: logger}
	limiter := middleware.NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api := r.Group("/api/v1")
	api.GET("/health", h.health)

	api.POST("/intake",
		middleware.RateLimit(limiter),
		middleware.MaxBodyBytes(cfg.MaxUploadBytes),
		h.admit,
	)

	items := api.Group("/items")
	items.GET("", h.listItems)
	items.GET("/:id", h.getItem)
	items.GET("/:id/preview", h.preview)
	items.DELETE("/:id", h.removeItem)
	items.POST("/:id/edit", h.startEditing)
	items.POST("/:id/submit", h.submit)

	edit := api.Group("/edit")
	edit.GET("", h.currentDraft)
	edit.PATCH("", h.updateDraft)
	edit.POST("/save", h.saveDraft)
	edit.POST("/cancel", h.cancelDraft)

	api.GET("/notifications", h.notifications)
	api.GET("/export.xlsx", h.exportXLSX)
	api.GET("/submissions", h.listSubmissions)

	return r
}

func (h *handlers) health(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
	}
	respond.OK(c, gin.H{"ok": true})
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/core/async"
	"github.com/joseph-ayodele/claims-intake/internal/core/ocr"
	"github.com/joseph-ayodele/claims-intake/internal/export"
	"github.com/joseph-ayodele/claims-intake/internal/intake"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/pipeline"
	"github.com/joseph-ayodele/claims-intake/internal/preview"
	"github.com/joseph-ayodele/claims-intake/internal/repository"
	"github.com/joseph-ayodele/claims-intake/internal/review"
	"github.com/joseph-ayodele/claims-intake/internal/server"
	"github.com/joseph-ayodele/claims-intake/internal/store"
	"github.com/joseph-ayodele/claims-intake/internal/submit"
)

// Session is one wired intake session: every component shares its store,
// preview registry and notification feed.
type Session struct {
	Store    *store.Store
	Previews *preview.Registry
	Feed     *notify.Feed
	Notifier notify.Sink
	Queue    *async.ProcessorQueue
	Intake   *intake.Manager
	Review   *review.Controller
	Submit   *submit.Boundary
	Export   *export.Service
	// Ledger and DB are nil unless the submission sink is SQL backed.
	Ledger repository.ClaimLedger
	DB     *repository.DB

	logger *slog.Logger
}

type options struct {
	recognizer ocr.Recognizer
	sink       submit.Sink
}

type Option func(*options)

// WithRecognizer replaces the tesseract engine.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithSink replaces the configured submission sink.
func WithSink(s submit.Sink) Option {
	return func(o *options) { o.sink = s }
}

func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	s := &Session{
		Store:    store.New(logger),
		Previews: preview.NewRegistry(logger),
		Feed:     notify.NewFeed(0),
		logger:   logger,
	}
	s.Notifier = notify.Multi{notify.NewLogSink(logger), s.Feed}

	sink := o.sink
	if sink == nil {
		var err error
		if sink, err = s.openSink(ctx, cfg); err != nil {
			s.Store.Close()
			return nil, err
		}
	}

	rec := o.recognizer
	if rec == nil {
		rec = ocr.NewEngine(ocr.Config{
			Pdftoppm:      cfg.OCR.Pdftoppm,
			Tesseract:     cfg.OCR.Tesseract,
			Magick:        cfg.OCR.HeicConverter,
			TesseractLang: cfg.OCR.Lang,
			TessdataDir:   cfg.OCR.TessdataDir,
			DPI:           cfg.OCR.DPI,
			MaxPages:      cfg.OCR.MaxPages,
			MaxInstances:  cfg.OCR.MaxInstances,
			CacheTTL:      cfg.OCR.CacheTTL,
		}, logger)
	}

	proc := pipeline.NewProcessor(logger, s.Store,
		pipeline.NewOCRStage(s.Previews, rec, logger),
		pipeline.NewParseStage(nil, logger),
		s.Notifier,
	)
	s.Queue = async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)
	s.Intake = intake.NewManager(logger, s.Store, s.Previews, s.Queue, s.Notifier)
	s.Review = review.NewController(logger, s.Store, s.Notifier)
	s.Submit = submit.NewBoundary(logger, s.Store, s.Review, sink, s.Notifier)
	s.Export = export.NewService(s.Store, logger)
	return s, nil
}

func (s *Session) openSink(ctx context.Context, cfg *common.Config) (submit.Sink, error) {
	switch cfg.Submission.Sink {
	case "", common.SinkLog:
		return submit.NewLogSink(s.logger), nil
	case common.SinkSQLite, common.SinkPostgres:
		db, err := OpenLedgerDB(ctx, cfg, s.logger)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(ctx, db.SQL, db.Dialect); err != nil {
			db.Close(s.logger)
			return nil, common.NewAppError("LEDGER_ERROR", "migrations failed", err)
		}
		s.DB = db
		s.Ledger = repository.NewClaimLedger(db.SQL, db.Dialect, s.logger)
		return s.Ledger, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown submission sink %q", cfg.Submission.Sink), common.ErrInvalidInput)
	}
}

// OpenLedgerDB opens the SQL ledger described by cfg without migrating it.
func OpenLedgerDB(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		Dialect:          cfg.Submission.Sink,
		DSN:              cfg.Submission.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.NewAppError("LEDGER_ERROR", "cannot open ledger", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return db, nil
}

// RouterDeps exposes the session to the HTTP surface.
func (s *Session) RouterDeps() server.Deps {
	d := server.Deps{
		Intake:        s.Intake,
		Items:         s.Store,
		Previews:      s.Previews,
		Editor:        s.Review,
		Submitter:     s.Submit,
		Notifications: s.Feed,
		Exporter:      s.Export,
	}
	if s.Ledger != nil {
		d.Submissions = s.Ledger
	}
	if s.DB != nil {
		d.Health = func(ctx context.Context) error {
			return s.DB.HealthCheck(ctx, server.HealthTimeout)
		}
	}
	return d
}

// Close drains the queue within ctx, then releases previews, the store and the ledger.
func (s *Session) Close(ctx context.Context) {
	s.Intake.Close(ctx)
	s.Store.Close()
	if s.DB != nil {
		s.DB.Close(s.logger)
	}
}

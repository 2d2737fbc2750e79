package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/claims-intake/constants"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Magick    string // used for HEIC/HEIF images only; if empty -> "magick"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// MaxInstances caps simultaneously running engine instances, default 2.
	MaxInstances int
	// CacheTTL keeps recognized text per content hash; 0 -> 30m, negative disables.
	CacheTTL time.Duration
	// StderrLimit caps the tool stderr kept in errors and logs, default 4KB.
	StderrLimit int
}

// Document is one file handed to the engine.
type Document struct {
	Name      string
	MediaType string
	Content   []byte
}

type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language string
	Duration time.Duration
	Warnings []string
	Cached   bool
}

// Recognizer is the OCR boundary the pipeline depends on.
type Recognizer interface {
	Recognize(ctx context.Context, doc Document) (Result, error)
}

// RecognitionError is returned for every engine failure: unreadable file,
// engine crash, unsupported content or an expired context.
type RecognitionError struct {
	Filename string
	Method   string
	Err      error
}

func (e *RecognitionError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("recognition failed for %q (%s): %v", e.Filename, e.Method, e.Err)
	}
	return fmt.Sprintf("recognition failed for %q: %v", e.Filename, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// IsRecognitionError reports whether err carries a *RecognitionError.
func IsRecognitionError(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re)
}

var ErrUnsupportedContent = errors.New("unsupported content")

type Option func(*Engine)

// WithRunner replaces the exec-based runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithScratchDir sets the parent directory for per-call scratch space.
func WithScratchDir(dir string) Option {
	return func(e *Engine) { e.scratchRoot = dir }
}

// Engine hands out one private instance per Recognize call.
type Engine struct {
	cfg         Config
	runner      Runner
	logger      *slog.Logger
	slots       *semaphore.Weighted
	cache       *gocache.Cache
	scratchRoot string
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Magick == "" {
		cfg.Magick = "magick"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 2
	}
	if cfg.StderrLimit <= 0 {
		cfg.StderrLimit = 4 << 10
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	e := &Engine{
		cfg:    cfg,
		runner: execRunner{logger: logger, stderrLimit: cfg.StderrLimit},
		logger: logger,
		slots:  semaphore.NewWeighted(int64(cfg.MaxInstances)),
	}
	if cfg.CacheTTL > 0 {
		e.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Recognize acquires an engine slot and a private instance, runs recognition and
// releases both on every exit path.
func (e *Engine) Recognize(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	key := contentKey(doc.Content)

	if res, ok := e.cached(key); ok {
		e.logger.Debug("ocr cache hit", "filename", doc.Name, "content_hash", key)
		res.Cached = true
		res.Duration = time.Since(start)
		return res, nil
	}

	if len(doc.Content) == 0 {
		return Result{}, &RecognitionError{Filename: doc.Name, Err: fmt.Errorf("%w: empty file", ErrUnsupportedContent)}
	}

	if err := e.slots.Acquire(ctx, 1); err != nil {
		return Result{}, &RecognitionError{Filename: doc.Name, Err: fmt.Errorf("waiting for engine: %w", err)}
	}
	defer e.slots.Release(1)

	inst, err := e.newInstance()
	if err != nil {
		return Result{}, &RecognitionError{Filename: doc.Name, Err: fmt.Errorf("start engine: %w", err)}
	}
	defer inst.release()

	e.logger.Debug("starting ocr", "filename", doc.Name, "media_type", doc.MediaType, "scratch", inst.dir)

	var res Result
	switch {
	case constants.IsPDF(doc.MediaType):
		res, err = inst.recognizePDF(ctx, doc)
	case constants.IsAcceptedMediaType(doc.MediaType):
		res, err = inst.recognizeImage(ctx, doc)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedContent, doc.MediaType)
	}
	res.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		e.logger.Warn("ocr failed", "filename", doc.Name, "method", res.Method, "duration_ms", res.Duration.Milliseconds(), "error", err)
		return res, &RecognitionError{Filename: doc.Name, Method: res.Method, Err: err}
	}

	res.Text = Normalize(res.Text)
	res.Language = e.cfg.TesseractLang
	e.store(key, res)

	e.logger.Info("ocr finished",
		"filename", doc.Name,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Engine) cached(key string) (Result, bool) {
	if e.cache == nil {
		return Result{}, false
	}
	v, ok := e.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	res, ok := v.(Result)
	return res, ok
}

func (e *Engine) store(key string, res Result) {
	if e.cache == nil {
		return
	}
	e.cache.SetDefault(key, res)
}

func contentKey(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

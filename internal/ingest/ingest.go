package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/claims-intake/internal/intake"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path   string
	ItemID string
	Code   string // rejection code, if any
	Err    string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned  uint32
	Matched  uint32
	Admitted uint32
	Rejected uint32
	Failed   uint32
}

// Admitter is the behavior the ingestor depends on.
type Admitter interface {
	Admit(ctx context.Context, files []intake.File) (intake.AdmitResult, error)
}

// Ingestor feeds files from the local filesystem into intake.
type Ingestor struct {
	admitter Admitter
	logger   *slog.Logger
	maxBytes int64
	exts     map[string]struct{}
}

type Option func(*Ingestor)

// WithMaxBytes refuses files larger than n bytes before reading them.
func WithMaxBytes(n int64) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

// WithExtensions replaces the default extension filter.
func WithExtensions(exts ...string) Option {
	return func(i *Ingestor) {
		if set := extSet(exts); len(set) > 0 {
			i.exts = set
		}
	}
}

func New(admitter Admitter, logger *slog.Logger, opts ...Option) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Ingestor{admitter: admitter, logger: logger, exts: defaultExts()}
	for _, o := range opts {
		o(i)
	}
	return i
}

// IngestPath admits a single file.
func (i *Ingestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}
	f, err := i.readFile(path)
	if err != nil {
		res.Err = err.Error()
		return res, err
	}
	out, err := i.admitter.Admit(ctx, []intake.File{f})
	if err != nil {
		res.Err = err.Error()
		return res, err
	}
	switch {
	case len(out.Accepted) == 1:
		res.ItemID = out.Accepted[0].ID
	case len(out.Rejected) == 1:
		res.Code = out.Rejected[0].Code
		res.Err = out.Rejected[0].Reason
	}
	return res, nil
}

func (i *Ingestor) readFile(path string) (intake.File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return intake.File{}, err
	}
	if st.IsDir() {
		return intake.File{}, fmt.Errorf("%s is a directory", path)
	}
	if i.maxBytes > 0 && st.Size() > i.maxBytes {
		return intake.File{}, fmt.Errorf("%s exceeds %d bytes", path, i.maxBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return intake.File{}, err
	}
	// the declared type is left empty so intake sniffs the content
	return intake.File{Name: filepath.Base(path), Content: b}, nil
}

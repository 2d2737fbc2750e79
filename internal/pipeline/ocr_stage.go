package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/claims-intake/internal/core/ocr"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/preview"
)

// ContentSource resolves an item's preview ref to the uploaded bytes.
type ContentSource interface {
	Open(ref string) (preview.Preview, error)
}

type OCRStage struct {
	Content    ContentSource
	Recognizer ocr.Recognizer
	Logger     *slog.Logger
}

func NewOCRStage(content ContentSource, rec ocr.Recognizer, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Content: content, Recognizer: rec, Logger: logger}
}

// Run recognizes the item's uploaded content and returns the raw text result.
func (s *OCRStage) Run(ctx context.Context, item entity.IntakeItem) (ocr.Result, error) {
	pv, err := s.Content.Open(item.PreviewRef)
	if err != nil {
		return ocr.Result{}, &ocr.RecognitionError{Filename: item.Filename, Err: fmt.Errorf("open content: %w", err)}
	}
	res, err := s.Recognizer.Recognize(ctx, ocr.Document{
		Name:      item.Filename,
		MediaType: item.MediaType,
		Content:   pv.Content,
	})
	if err != nil {
		return res, err
	}
	s.Logger.Debug("ocr stage success",
		"item_id", item.ID,
		"method", res.Method,
		"pages", res.Pages,
		"cached", res.Cached,
	)
	return res, nil
}

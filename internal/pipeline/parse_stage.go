package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/extract"
)

type ParseStage struct {
	Extractor extract.FieldExtractor
	Logger    *slog.Logger
}

func NewParseStage(x extract.FieldExtractor, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if x == nil {
		x = extract.NewRuleExtractor()
	}
	return &ParseStage{Extractor: x, Logger: logger}
}

// Run maps recognized text to claim fields. It never fails.
func (s *ParseStage) Run(itemID, text string) entity.ExtractedFields {
	f := s.Extractor.Extract(text)
	s.Logger.Debug("parse stage done", "item_id", itemID, "resolved", f.Resolved(), "of", len(entity.AllFields))
	return f
}

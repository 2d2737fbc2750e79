package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/claims-intake/internal/core/async"
	"github.com/joseph-ayodele/claims-intake/internal/core/ocr"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/store"
)

// ItemStore is the part of the item store a pipeline task touches.
type ItemStore interface {
	Get(ctx context.Context, id string) (entity.IntakeItem, error)
	Patch(ctx context.Context, id string, p store.Patch) (entity.IntakeItem, error)
}

// Processor coordinates OCR (text extract) then rule parsing (fields) for one item.
type Processor struct {
	logger   *slog.Logger
	items    ItemStore
	ocr      *OCRStage
	parse    *ParseStage
	notifier notify.Sink
}

var _ async.Handler = (*Processor)(nil)

func NewProcessor(logger *slog.Logger, items ItemStore, ocr *OCRStage, parse *ParseStage, notifier notify.Sink) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogSink(logger)
	}
	return &Processor{logger: logger, items: items, ocr: ocr, parse: parse, notifier: notifier}
}

// Process settles exactly one item: Completed with fields, or Error. Nothing
// outside that item is touched.
func (p *Processor) Process(ctx context.Context, job async.Job) error {
	// the item must settle even when the job's context is already done
	settle := context.WithoutCancel(ctx)

	item, err := p.items.Get(settle, job.ItemID)
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	if item.Status.IsTerminal() {
		p.logger.Warn("item already settled, skipping", "item_id", item.ID, "status", item.Status)
		return nil
	}

	// jobs drained after shutdown ran out of time never reach the engine
	if err := ctx.Err(); err != nil {
		return p.fail(settle, item, &ocr.RecognitionError{Filename: item.Filename, Err: err})
	}

	// 1) OCR stage
	res, err := p.ocr.Run(ctx, item)
	if err != nil {
		return p.fail(settle, item, err)
	}

	// 2) parse stage
	fields := p.parse.Run(item.ID, res.Text)
	if _, err := p.items.Patch(settle, item.ID, store.Completed(fields)); err != nil {
		return fmt.Errorf("record fields: %w", err)
	}
	p.notifier.Notify(settle, notify.Success(notify.CodeExtracted, item.ID,
		fmt.Sprintf("extracted %d of %d fields from %s", fields.Resolved(), len(entity.AllFields), item.Filename)))
	return nil
}

func (p *Processor) fail(ctx context.Context, item entity.IntakeItem, cause error) error {
	if _, err := p.items.Patch(ctx, item.ID, store.Failed(cause.Error())); err != nil {
		return fmt.Errorf("record failure: %w (ocr: %v)", err, cause)
	}
	p.notifier.Notify(ctx, notify.Error(notify.CodeRecognitionFailure, item.ID,
		fmt.Sprintf("could not read %s: %v", item.Filename, cause)))
	return cause
}

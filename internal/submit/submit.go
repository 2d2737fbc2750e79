package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
)

// Reasons carried by SubmissionError.
const (
	ReasonUnknownItem  = "unknown_item"
	ReasonNotCompleted = "not_completed"
	ReasonDraftOpen    = "draft_open"
	ReasonInvalid      = "invalid_fields"
	ReasonRejected     = "rejected"
	ReasonUnavailable  = "sink_unavailable"
)

var ErrDuplicate = errors.New("claim already submitted")

type SubmissionError struct {
	ItemID string
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission of %s failed (%s): %v", e.ItemID, e.Reason, e.Err)
	}
	return fmt.Sprintf("submission of %s failed (%s)", e.ItemID, e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Claim is what gets forwarded to the external claims system.
type Claim struct {
	ItemID string                 `json:"item_id"`
	Source string                 `json:"source"`
	Fields entity.ExtractedFields `json:"fields"`
}

type Receipt struct {
	ItemID      string    `json:"item_id"`
	Reference   string    `json:"reference"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Sink is the external claims system.
type Sink interface {
	Submit(ctx context.Context, c Claim) (Receipt, error)
}

type ItemReader interface {
	Get(ctx context.Context, id string) (entity.IntakeItem, error)
}

// DraftChecker reports whether an item has unsaved edits.
type DraftChecker interface {
	IsEditing(id string) bool
}

type Boundary struct {
	items    ItemReader
	drafts   DraftChecker
	sink     Sink
	notifier notify.Sink
	logger   *slog.Logger
}

func NewBoundary(logger *slog.Logger, items ItemReader, drafts DraftChecker, sink Sink, notifier notify.Sink) *Boundary {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if notifier == nil {
		notifier = notify.NewLogSink(logger)
	}
	return &Boundary{items: items, drafts: drafts, sink: sink, notifier: notifier, logger: logger}
}

// Submit forwards a finalized item. The item itself is never modified.
func (b *Boundary) Submit(ctx context.Context, id string) (Receipt, error) {
	rcpt, err := b.submit(ctx, id)
	if err != nil {
		b.logger.Warn("submission failed", "item_id", id, "error", err)
		b.notifier.Notify(ctx, notify.Error(notify.CodeSubmissionFailure, id, err.Error()))
		return Receipt{}, err
	}
	b.logger.Info("claim submitted", "item_id", id, "reference", rcpt.Reference)
	b.notifier.Notify(ctx, notify.Success(notify.CodeSubmitted, id, "claim submitted, reference "+rcpt.Reference))
	return rcpt, nil
}

func (b *Boundary) submit(ctx context.Context, id string) (Receipt, error) {
	item, err := b.items.Get(ctx, id)
	if err != nil {
		return Receipt{}, &SubmissionError{ItemID: id, Reason: ReasonUnknownItem, Err: err}
	}
	if item.Status != constants.ItemStatusCompleted || item.Fields == nil {
		return Receipt{}, &SubmissionError{ItemID: id, Reason: ReasonNotCompleted, Err: fmt.Errorf("item is %s", item.Status)}
	}
	if b.drafts != nil && b.drafts.IsEditing(id) {
		return Receipt{}, &SubmissionError{ItemID: id, Reason: ReasonDraftOpen, Err: errors.New("save or cancel the open edit first")}
	}
	if err := Finalized(*item.Fields); err != nil {
		return Receipt{}, &SubmissionError{ItemID: id, Reason: ReasonInvalid, Err: err}
	}

	rcpt, err := b.sink.Submit(ctx, Claim{ItemID: id, Source: item.Filename, Fields: *item.Fields})
	if err != nil {
		reason := ReasonRejected
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonUnavailable
		}
		return Receipt{}, &SubmissionError{ItemID: id, Reason: reason, Err: err}
	}
	return rcpt, nil
}

// Finalized checks fields against the claim schema.
func Finalized(f entity.ExtractedFields) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return ValidateJSONAgainstSchema(data)
}

// LogSink accepts every claim and only logs it.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Submit(ctx context.Context, c Claim) (Receipt, error) {
	r := Receipt{ItemID: c.ItemID, Reference: "log-" + uuid.NewString(), SubmittedAt: time.Now().UTC()}
	s.logger.InfoContext(ctx, "claim forwarded",
		"item_id", c.ItemID,
		"source", c.Source,
		"claimant", c.Fields.ClaimantName,
		"village", c.Fields.Village,
		"claim_type", c.Fields.ClaimType,
		"coordinates", c.Fields.Coordinates,
		"reference", r.Reference,
	)
	return r, nil
}

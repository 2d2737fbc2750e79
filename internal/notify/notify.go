package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Codes carried by error notifications.
const (
	CodeInvalidFileType    = "InvalidFileType"
	CodeRecognitionFailure = "RecognitionFailure"
	CodeSubmissionFailure  = "SubmissionFailure"
	CodeExtracted          = "Extracted"
	CodeSaved              = "Saved"
	CodeSubmitted          = "Submitted"
)

// Event is a user-visible notification.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    Kind      `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	ItemID  string    `json:"item_id,omitempty"`
	At      time.Time `json:"at"`
}

func Success(code, itemID, msg string) Event {
	return Event{Kind: KindSuccess, Code: code, ItemID: itemID, Message: msg}
}

func Error(code, itemID, msg string) Event {
	return Event{Kind: KindError, Code: code, ItemID: itemID, Message: msg}
}

type Sink interface {
	Notify(ctx context.Context, e Event)
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if e.Kind == KindError {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "notification", "kind", e.Kind, "code", e.Code, "item_id", e.ItemID, "message", e.Message)
}

// Feed keeps the most recent events in memory for the HTTP surface.
type Feed struct {
	mu     sync.Mutex
	events []Event
	seq    uint64
	limit  int
	now    func() time.Time
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 500
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Notify(_ context.Context, e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e.Seq = f.seq
	if e.At.IsZero() {
		e.At = f.now()
	}
	f.events = append(f.events, e)
	if over := len(f.events) - f.limit; over > 0 {
		f.events = append(f.events[:0:0], f.events[over:]...)
	}
}

// Since returns the retained events with Seq greater than after, oldest first.
func (f *Feed) Since(after uint64) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.events))
	for _, e := range f.events {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans one event out to every sink.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, e)
		}
	}
}

package submit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/store"
)

var ramesh = entity.ExtractedFields{ClaimantName: "Ramesh Kumar", Village: "Khandwa", ClaimType: "IFR", Coordinates: "22.71,76.35"}

type drafts map[string]bool

func (d drafts) IsEditing(id string) bool { return d[id] }

type recordingSink struct {
	claims []Claim
	err    error
}

func (s *recordingSink) Submit(_ context.Context, c Claim) (Receipt, error) {
	if s.err != nil {
		return Receipt{}, s.err
	}
	s.claims = append(s.claims, c)
	return Receipt{ItemID: c.ItemID, Reference: "ref-1"}, nil
}

func setup(t *testing.T, d drafts, sink Sink) (*Boundary, *store.Store, *notify.Feed) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(logger)
	t.Cleanup(s.Close)
	feed := notify.NewFeed(0)
	return NewBoundary(logger, s, d, sink, feed), s, feed
}

func add(t *testing.T, s *store.Store, id string, f *entity.ExtractedFields) {
	t.Helper()
	ctx := context.Background()
	if err := s.Insert(ctx, entity.IntakeItem{ID: id, Filename: id + ".pdf", Status: constants.ItemStatusProcessing}); err != nil {
		t.Fatal(err)
	}
	if f != nil {
		if _, err := s.Patch(ctx, id, store.Completed(*f)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSubmitForwardsFinalizedItem(t *testing.T) {
	sink := &recordingSink{}
	b, s, feed := setup(t, nil, sink)
	add(t, s, "a", &ramesh)

	rcpt, err := b.Submit(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if rcpt.Reference != "ref-1" || len(sink.claims) != 1 || sink.claims[0].Fields != ramesh {
		t.Fatalf("unexpected forward: %+v %+v", rcpt, sink.claims)
	}
	if ev := feed.Since(0); len(ev) != 1 || ev[0].Kind != notify.KindSuccess {
		t.Fatalf("unexpected notifications: %+v", ev)
	}
	got, _ := s.Get(context.Background(), "a")
	if got.Status != constants.ItemStatusCompleted {
		t.Fatalf("submission changed the item: %+v", got)
	}
}

func TestSubmitRejections(t *testing.T) {
	partial := ramesh
	partial.Village = constants.NotFound
	partial.ClaimType = constants.NotFound
	blank := ramesh
	blank.Coordinates = "   "

	tests := []struct {
		name   string
		id     string
		drafts drafts
		sink   *recordingSink
		reason string
	}{
		{"unknown", "nope", nil, &recordingSink{}, ReasonUnknownItem},
		{"processing", "proc", nil, &recordingSink{}, ReasonNotCompleted},
		{"draft open", "ok", drafts{"ok": true}, &recordingSink{}, ReasonDraftOpen},
		{"claim type unresolved", "partial", nil, &recordingSink{}, ReasonInvalid},
		{"blank coordinates", "blank", nil, &recordingSink{}, ReasonInvalid},
		{"sink rejects", "ok", nil, &recordingSink{err: ErrDuplicate}, ReasonRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, s, feed := setup(t, tt.drafts, tt.sink)
			add(t, s, "proc", nil)
			add(t, s, "ok", &ramesh)
			add(t, s, "partial", &partial)
			add(t, s, "blank", &blank)

			_, err := b.Submit(context.Background(), tt.id)
			var se *SubmissionError
			if !errors.As(err, &se) {
				t.Fatalf("expected SubmissionError, got %v", err)
			}
			if se.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s (%v)", se.Reason, tt.reason, err)
			}
			if len(tt.sink.claims) != 0 {
				t.Fatalf("rejected claim was forwarded")
			}
			ev := feed.Since(0)
			if len(ev) != 1 || ev[0].Code != notify.CodeSubmissionFailure {
				t.Fatalf("unexpected notifications: %+v", ev)
			}
		})
	}
}

func TestFinalized(t *testing.T) {
	if err := Finalized(ramesh); err != nil {
		t.Fatalf("complete fields rejected: %v", err)
	}
	bad := ramesh
	bad.ClaimType = "ifr"
	if err := Finalized(bad); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("lowercase claim type accepted: %v", err)
	}
	if err := Finalized(entity.ExtractedFields{}); err == nil {
		t.Fatal("empty fields accepted")
	}
}

func TestLogSinkAcceptsEverything(t *testing.T) {
	r, err := NewLogSink(slog.New(slog.NewTextHandler(io.Discard, nil))).Submit(context.Background(), Claim{ItemID: "a", Fields: ramesh})
	if err != nil || r.ItemID != "a" || !strings.HasPrefix(r.Reference, "log-") || r.SubmittedAt.IsZero() {
		t.Fatalf("unexpected receipt %+v, err %v", r, err)
	}
}

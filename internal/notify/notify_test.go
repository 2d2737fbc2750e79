package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFeedSequenceAndLimit(t *testing.T) {
	f := NewFeed(2)
	ctx := context.Background()
	f.Notify(ctx, Success(CodeExtracted, "a", "done"))
	f.Notify(ctx, Error(CodeInvalidFileType, "", "notes.txt"))
	f.Notify(ctx, Success(CodeSaved, "a", "saved"))

	all := f.Since(0)
	if len(all) != 2 {
		t.Fatalf("retained %d events, want 2", len(all))
	}
	if all[0].Seq != 2 || all[1].Seq != 3 {
		t.Fatalf("unexpected sequence: %+v", all)
	}
	if got := f.Since(2); len(got) != 1 || got[0].Code != CodeSaved {
		t.Fatalf("Since(2) = %+v", got)
	}
	if all[0].At.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

func TestMultiFansOut(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	feed := NewFeed(0)
	m := Multi{NewLogSink(logger), feed, nil}

	m.Notify(context.Background(), Error(CodeRecognitionFailure, "item-1", "engine crashed"))

	if got := feed.Since(0); len(got) != 1 || got[0].Kind != KindError {
		t.Fatalf("feed = %+v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "code=RecognitionFailure") {
		t.Fatalf("log output missing event: %s", out)
	}
}

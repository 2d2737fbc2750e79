package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []Step

	tesseract func(path string) ([]byte, error)
	pages     int

	active    atomic.Int32
	maxActive atomic.Int32
	hold      time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c.Step)
	f.mu.Unlock()

	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.hold > 0 {
		select {
		case <-time.After(f.hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch c.Step {
	case StepRasterize:
		prefix := c.Args[len(c.Args)-1]
		for p := 1; p <= f.pages; p++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, p), []byte("png"), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case StepRecognize:
		if f.tesseract == nil {
			return []byte("text"), nil
		}
		out, err := f.tesseract(c.Args[0])
		if err != nil {
			return nil, &ToolError{Step: c.Step, Bin: c.Bin, Stderr: "engine crashed", Err: err}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected step %q", c.Step)
}

func (f *fakeRunner) count(step Step) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == step {
			n++
		}
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func imageDoc(content string) Document {
	return Document{Name: "scan.png", MediaType: "image/png", Content: []byte(content)}
}

func TestRecognizeImageNormalizesText(t *testing.T) {
	fr := &fakeRunner{tesseract: func(string) ([]byte, error) {
		return []byte("Claimant  Name:\tRamesh Kumar\r\n-----\r\nVillage: Sundarpur   \r\n"), nil
	}}
	e := NewEngine(Config{}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	res, err := e.Recognize(context.Background(), imageDoc("a"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	want := "Claimant Name: Ramesh Kumar\n\nVillage: Sundarpur"
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
	if res.Method != "image-ocr" || res.Pages != 1 || res.Language != "eng" {
		t.Fatalf("unexpected result metadata: %+v", res)
	}
}

func TestRecognizeCachesByContent(t *testing.T) {
	fr := &fakeRunner{}
	e := NewEngine(Config{}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	if _, err := e.Recognize(context.Background(), imageDoc("same")); err != nil {
		t.Fatal(err)
	}
	res, err := e.Recognize(context.Background(), Document{Name: "copy.jpg", MediaType: "image/jpeg", Content: []byte("same")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached {
		t.Fatalf("second call was not served from cache")
	}
	if got := fr.count(StepRecognize); got != 1 {
		t.Fatalf("tesseract called %d times, want 1", got)
	}
}

func TestRecognizeFailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	fr := &fakeRunner{tesseract: func(string) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("exit status 1")
		}
		return []byte("ok"), nil
	}}
	e := NewEngine(Config{}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	_, err := e.Recognize(context.Background(), imageDoc("x"))
	if !IsRecognitionError(err) {
		t.Fatalf("expected RecognitionError, got %v", err)
	}

	fail.Store(false)
	res, err := e.Recognize(context.Background(), imageDoc("x"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached || res.Text != "ok" {
		t.Fatalf("unexpected result after retry: %+v", res)
	}
}

func TestRecognizeRemovesScratchDir(t *testing.T) {
	root := t.TempDir()
	for _, fail := range []bool{false, true} {
		fr := &fakeRunner{tesseract: func(string) ([]byte, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return []byte("fine"), nil
		}}
		e := NewEngine(Config{CacheTTL: -1}, quietLogger(), WithRunner(fr), WithScratchDir(root))
		_, _ = e.Recognize(context.Background(), imageDoc("c"))

		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("fail=%v: scratch left behind: %v", fail, entries)
		}
	}
}

func TestRecognizeBoundsInstances(t *testing.T) {
	fr := &fakeRunner{hold: 20 * time.Millisecond}
	e := NewEngine(Config{MaxInstances: 1, CacheTTL: -1}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Recognize(context.Background(), imageDoc(fmt.Sprint(i))); err != nil {
				t.Errorf("Recognize %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := fr.maxActive.Load(); got != 1 {
		t.Fatalf("max concurrent engine runs = %d, want 1", got)
	}
}

func TestRecognizeScannedPDFFallsBackToRaster(t *testing.T) {
	fr := &fakeRunner{pages: 2, tesseract: func(path string) ([]byte, error) {
		return []byte("page " + strings.TrimSuffix(filepath.Base(path), ".png")), nil
	}}
	e := NewEngine(Config{}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	doc := Document{Name: "scan.pdf", MediaType: "application/pdf", Content: []byte("%PDF-1.4 not really a pdf")}
	res, err := e.Recognize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Method != "pdf-ocr" || res.Pages != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Text != "page page-1\n\npage page-2" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestRecognizeMaxPages(t *testing.T) {
	fr := &fakeRunner{pages: 3}
	e := NewEngine(Config{MaxPages: 1}, quietLogger(), WithRunner(fr), WithScratchDir(t.TempDir()))

	res, err := e.Recognize(context.Background(), Document{Name: "a.pdf", MediaType: "application/pdf", Content: []byte("%PDF")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 1 || len(res.Warnings) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRecognizeRejectsUnsupportedContent(t *testing.T) {
	e := NewEngine(Config{}, quietLogger(), WithRunner(&fakeRunner{}), WithScratchDir(t.TempDir()))

	_, err := e.Recognize(context.Background(), Document{Name: "a.txt", MediaType: "text/plain", Content: []byte("hi")})
	if !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("expected ErrUnsupportedContent, got %v", err)
	}
	_, err = e.Recognize(context.Background(), Document{Name: "empty.png", MediaType: "image/png"})
	if !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("expected ErrUnsupportedContent for empty file, got %v", err)
	}
}

func TestRecognizeHonorsCancelledContext(t *testing.T) {
	e := NewEngine(Config{}, quietLogger(), WithRunner(&fakeRunner{}), WithScratchDir(t.TempDir()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Recognize(ctx, imageDoc("z"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"a\r\nb\rc", "a\nb\nc"},
		{"a\fb", "a\nb"},
		{"x\n\n\n\n\ny", "x\n\ny"},
		{"Coordinates: 21.15, 76.05", "Coordinates: 21.15, 76.05"},
		{"  lead\t\ttab  ", "lead tab"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

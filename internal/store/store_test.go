package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(s.Close)
	return s
}

func processing(id string) entity.IntakeItem {
	return entity.IntakeItem{ID: id, Filename: id + ".pdf", MediaType: constants.MediaTypePDF, Status: constants.ItemStatusProcessing}
}

func fields(name string) entity.ExtractedFields {
	return entity.ExtractedFields{ClaimantName: name, Village: "Khandwa", ClaimType: "IFR", Coordinates: "22.71,76.35"}
}

func ids(items []entity.IntakeItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Insert(ctx, processing("a")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.ItemStatusProcessing || got.Fields != nil || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected item: %+v", got)
	}
	if err := s.Insert(ctx, processing("a")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertRejectsBrokenInvariant(t *testing.T) {
	s := newTestStore(t)
	it := processing("a")
	f := fields("x")
	it.Fields = &f
	if err := s.Insert(context.Background(), it); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch, got %v", err)
	}
}

func TestListKeepsInsertionOrderRegardlessOfCompletion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Insert(ctx, processing(id)); err != nil {
			t.Fatal(err)
		}
	}
	// complete in reverse
	for _, id := range []string{"c", "b", "a"} {
		if _, err := s.Patch(ctx, id, Completed(fields(id))); err != nil {
			t.Fatal(err)
		}
	}
	items, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(items)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	for _, it := range items {
		if it.Fields.ClaimantName != it.ID {
			t.Fatalf("fields crossed over: %+v", it)
		}
	}
}

func TestPatchSemantics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Insert(ctx, processing("a")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		patch   Patch
		wantErr error
	}{
		{"unknown id", "zzz", Completed(fields("x")), ErrNotFound},
		{"completed without fields", "a", func() Patch { s := constants.ItemStatusCompleted; return Patch{Status: &s} }(), ErrInvalidPatch},
		{"fields while processing", "a", EditedFields(fields("x")), ErrInvalidPatch},
		{"lowercase claim type", "a", Completed(entity.ExtractedFields{ClaimType: "ifr"}), ErrInvalidPatch},
		{"free text claim type", "a", Completed(entity.ExtractedFields{ClaimType: "IFR land"}), ErrInvalidPatch},
		{"completed", "a", Completed(fields("Ramesh")), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Patch(ctx, tt.id, tt.patch)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// a rejected patch leaves the item untouched
	got, _ := s.Get(ctx, "a")
	if got.Fields == nil || got.Fields.ClaimantName != "Ramesh" {
		t.Fatalf("unexpected item: %+v", got)
	}

	// absent patch fields are kept
	upd := fields("Sita")
	got, err := s.Patch(ctx, "a", EditedFields(upd))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.ItemStatusCompleted || got.Fields.ClaimantName != "Sita" {
		t.Fatalf("unexpected item after edit: %+v", got)
	}
}

func TestFailedPatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.Insert(ctx, processing("a"))

	got, err := s.Patch(ctx, "a", Failed("tesseract: exit status 1"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.ItemStatusError || got.Fields != nil || got.Error == "" {
		t.Fatalf("unexpected item: %+v", got)
	}
}

func TestReturnedItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.Insert(ctx, processing("a"))
	got, _ := s.Patch(ctx, "a", Completed(fields("orig")))

	got.Fields.ClaimantName = "mutated"
	again, _ := s.Get(ctx, "a")
	if again.Fields.ClaimantName != "orig" {
		t.Fatalf("store shares memory with callers")
	}
}

func TestConcurrentPatchesAreAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	const n = 50
	for i := 0; i < n; i++ {
		_ = s.Insert(ctx, processing(fmt.Sprint(i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			if _, err := s.Patch(ctx, id, Completed(fields(id))); err != nil {
				t.Errorf("patch %s: %v", id, err)
			}
		}(fmt.Sprint(i))
		go func() {
			defer wg.Done()
			items, err := s.List(ctx)
			if err != nil {
				t.Errorf("list: %v", err)
				return
			}
			for _, it := range items {
				if (it.Status == constants.ItemStatusCompleted) != (it.Fields != nil) {
					t.Errorf("half-applied item observed: %+v", it)
				}
			}
		}()
	}
	wg.Wait()

	items, _ := s.List(ctx)
	for _, it := range items {
		if it.Status != constants.ItemStatusCompleted || it.Fields.ClaimantName != it.ID {
			t.Fatalf("unexpected item: %+v", it)
		}
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		_ = s.Insert(ctx, processing(id))
	}
	if _, err := s.Remove(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Remove(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	items, _ := s.List(ctx)
	if diff := cmp.Diff([]string{"a", "c"}, ids(items)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedStore(t *testing.T) {
	s := New(nil)
	s.Close()
	s.Close()

	if err := s.Insert(context.Background(), processing("a")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.List(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

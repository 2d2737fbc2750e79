package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

var (
	ErrNotFound     = errors.New("item not found")
	ErrDuplicateID  = errors.New("item id already exists")
	ErrInvalidPatch = errors.New("invalid patch")
	ErrClosed       = errors.New("store closed")
)

// Patch overwrites the fields it carries and keeps the rest.
type Patch struct {
	Status *constants.ItemStatus
	Fields *entity.ExtractedFields
	Error  *string
}

// Completed builds the patch applied when recognition succeeds.
func Completed(fields entity.ExtractedFields) Patch {
	s := constants.ItemStatusCompleted
	empty := ""
	return Patch{Status: &s, Fields: &fields, Error: &empty}
}

// Failed builds the patch applied when recognition fails.
func Failed(msg string) Patch {
	s := constants.ItemStatusError
	return Patch{Status: &s, Error: &msg}
}

// EditedFields replaces the fields of an item and leaves its status alone.
func EditedFields(fields entity.ExtractedFields) Patch {
	return Patch{Fields: &fields}
}

type state struct {
	order []string
	items map[string]*entity.IntakeItem
}

// Store holds every intake item of the session. A single goroutine owns the
// items; callers talk to it through messages and get copies back.
type Store struct {
	ops    chan func(*state)
	quit   chan struct{}
	once   sync.Once
	done   chan struct{}
	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		ops:    make(chan func(*state)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
		now:    time.Now,
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.done)
	st := &state{items: make(map[string]*entity.IntakeItem)}
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.quit:
			return
		}
	}
}

// do runs op on the reducer goroutine and waits until it has been applied.
func (s *Store) do(ctx context.Context, op func(*state)) error {
	applied := make(chan struct{})
	wrapped := func(st *state) {
		op(st)
		close(applied)
	}
	select {
	case s.ops <- wrapped:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// once accepted, the op runs to completion before the loop reads again
	<-applied
	return nil
}

// Insert adds a new item at the end of the collection.
func (s *Store) Insert(ctx context.Context, item entity.IntakeItem) error {
	if item.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPatch)
	}
	if err := checkInvariant(&item); err != nil {
		return err
	}
	var opErr error
	err := s.do(ctx, func(st *state) {
		if _, exists := st.items[item.ID]; exists {
			opErr = ErrDuplicateID
			return
		}
		now := s.now()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		c := item.Clone()
		st.items[item.ID] = &c
		st.order = append(st.order, item.ID)
	})
	if err != nil {
		return err
	}
	if opErr == nil {
		s.logger.Debug("item inserted", "item_id", item.ID, "filename", item.Filename, "status", item.Status)
	}
	return opErr
}

// Patch applies p to the item atomically and returns the updated copy.
func (s *Store) Patch(ctx context.Context, id string, p Patch) (entity.IntakeItem, error) {
	var (
		out   entity.IntakeItem
		opErr error
	)
	err := s.do(ctx, func(st *state) {
		cur, ok := st.items[id]
		if !ok {
			opErr = ErrNotFound
			return
		}
		next := cur.Clone()
		if p.Status != nil {
			next.Status = *p.Status
		}
		if p.Fields != nil {
			f := *p.Fields
			next.Fields = &f
		}
		if p.Error != nil {
			next.Error = *p.Error
		}
		if e := checkInvariant(&next); e != nil {
			opErr = e
			return
		}
		next.UpdatedAt = s.now()
		st.items[id] = &next
		out = next.Clone()
	})
	if err != nil {
		return entity.IntakeItem{}, err
	}
	if opErr != nil {
		return entity.IntakeItem{}, opErr
	}
	s.logger.Debug("item patched", "item_id", id, "status", out.Status)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (entity.IntakeItem, error) {
	var (
		out entity.IntakeItem
		ok  bool
	)
	err := s.do(ctx, func(st *state) {
		var cur *entity.IntakeItem
		if cur, ok = st.items[id]; ok {
			out = cur.Clone()
		}
	})
	if err != nil {
		return entity.IntakeItem{}, err
	}
	if !ok {
		return entity.IntakeItem{}, ErrNotFound
	}
	return out, nil
}

// List returns copies of all items in insertion order.
func (s *Store) List(ctx context.Context) ([]entity.IntakeItem, error) {
	var out []entity.IntakeItem
	err := s.do(ctx, func(st *state) {
		out = make([]entity.IntakeItem, 0, len(st.order))
		for _, id := range st.order {
			out = append(out, st.items[id].Clone())
		}
	})
	return out, err
}

// Remove drops the item and returns its last state.
func (s *Store) Remove(ctx context.Context, id string) (entity.IntakeItem, error) {
	var (
		out entity.IntakeItem
		ok  bool
	)
	err := s.do(ctx, func(st *state) {
		var cur *entity.IntakeItem
		if cur, ok = st.items[id]; !ok {
			return
		}
		out = cur.Clone()
		delete(st.items, id)
		for i, oid := range st.order {
			if oid == id {
				st.order = append(st.order[:i], st.order[i+1:]...)
				break
			}
		}
	})
	if err != nil {
		return entity.IntakeItem{}, err
	}
	if !ok {
		return entity.IntakeItem{}, ErrNotFound
	}
	s.logger.Debug("item removed", "item_id", id)
	return out, nil
}

// Close stops the reducer. Later calls fail with ErrClosed.
func (s *Store) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

// checkInvariant enforces that fields exist exactly when the item is completed.
func checkInvariant(it *entity.IntakeItem) error {
	switch it.Status {
	case constants.ItemStatusCompleted:
		if it.Fields == nil {
			return fmt.Errorf("%w: completed item without fields", ErrInvalidPatch)
		}
		if ct := it.Fields.ClaimType; ct != constants.NotFound {
			if c, ok := constants.CanonicalizeClaimType(ct); !ok || string(c) != ct {
				return fmt.Errorf("%w: claim type %q", ErrInvalidPatch, ct)
			}
		}
	case constants.ItemStatusProcessing, constants.ItemStatusError:
		if it.Fields != nil {
			return fmt.Errorf("%w: %s item with fields", ErrInvalidPatch, it.Status)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPatch, it.Status)
	}
	return nil
}

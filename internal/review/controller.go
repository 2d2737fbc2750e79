package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/store"
)

var (
	ErrNotEditing       = errors.New("no draft is open")
	ErrNotEditable      = errors.New("item is not completed")
	ErrInvalidClaimType = errors.New("claim type must be IFR, CFR, CR or Not found")
	ErrUnknownField     = entity.ErrUnknownField
)

type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// Draft is the uncommitted copy of one item's fields.
type Draft struct {
	ItemID string                 `json:"item_id"`
	Fields entity.ExtractedFields `json:"fields"`
	// Replaced is the item whose open draft was discarded to start this one.
	Replaced string `json:"replaced,omitempty"`
}

type ItemStore interface {
	Get(ctx context.Context, id string) (entity.IntakeItem, error)
	Patch(ctx context.Context, id string, p store.Patch) (entity.IntakeItem, error)
}

// Controller is the review session. At most one draft is open at a time.
type Controller struct {
	mu       sync.Mutex
	drafts   map[string]*entity.ExtractedFields
	open     string
	items    ItemStore
	notifier notify.Sink
	logger   *slog.Logger
}

func NewController(logger *slog.Logger, items ItemStore, notifier notify.Sink) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogSink(logger)
	}
	return &Controller{
		drafts:   make(map[string]*entity.ExtractedFields),
		items:    items,
		notifier: notifier,
		logger:   logger,
	}
}

// StartEditing opens a draft seeded from the item's current fields. An open
// draft for another item is discarded.
func (c *Controller) StartEditing(ctx context.Context, id string) (Draft, error) {
	item, err := c.items.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if item.Status != constants.ItemStatusCompleted || item.Fields == nil {
		return Draft{}, fmt.Errorf("%w: %s is %s", ErrNotEditable, item.Filename, item.Status)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	d := Draft{ItemID: id, Fields: *item.Fields}
	if c.open != "" && c.open != id {
		d.Replaced = c.open
		c.logger.Info("discarding open draft", "item_id", c.open, "new_item_id", id)
	}
	clear(c.drafts)
	f := *item.Fields
	c.drafts[id] = &f
	c.open = id
	c.checkInvariant()
	c.logger.Debug("editing started", "item_id", id)
	return d, nil
}

// Update changes one field of the open draft.
func (c *Controller) Update(field entity.FieldName, value string) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[c.open]
	if !ok {
		return Draft{}, ErrNotEditing
	}
	if field == entity.FieldClaimType {
		v, err := canonicalClaimType(value)
		if err != nil {
			return Draft{}, err
		}
		value = v
	}
	next := *d
	if err := next.Set(field, value); err != nil {
		return Draft{}, err
	}
	*d = next
	return Draft{ItemID: c.open, Fields: next}, nil
}

func canonicalClaimType(v string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(v), constants.NotFound) {
		return constants.NotFound, nil
	}
	ct, ok := constants.CanonicalizeClaimType(v)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidClaimType, v)
	}
	return string(ct), nil
}

// Save writes the draft to the store and returns to viewing.
func (c *Controller) Save(ctx context.Context) (entity.IntakeItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.open
	d, ok := c.drafts[id]
	if !ok {
		return entity.IntakeItem{}, ErrNotEditing
	}

	cur, err := c.items.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.closeDraft()
			return entity.IntakeItem{}, fmt.Errorf("%w: item was removed", ErrNotEditable)
		}
		return entity.IntakeItem{}, err
	}
	if cur.Status != constants.ItemStatusCompleted {
		return entity.IntakeItem{}, ErrNotEditable
	}
	item, err := c.items.Patch(ctx, id, store.EditedFields(*d))
	if err != nil {
		return entity.IntakeItem{}, err
	}
	c.closeDraft()
	c.logger.Info("draft saved", "item_id", id)
	c.notifier.Notify(ctx, notify.Success(notify.CodeSaved, id, fmt.Sprintf("saved corrections for %s", item.Filename)))
	return item, nil
}

// Cancel discards the open draft, if any. The store is not touched.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != "" {
		c.logger.Debug("editing cancelled", "item_id", c.open)
	}
	c.closeDraft()
}

// Current returns the open draft.
func (c *Controller) Current() (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[c.open]
	if !ok {
		return Draft{}, false
	}
	return Draft{ItemID: c.open, Fields: *d}, true
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == "" {
		return ModeViewing
	}
	return ModeEditing
}

// IsEditing reports whether id has the open draft.
func (c *Controller) IsEditing(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.drafts[id]
	return ok
}

// Discard drops the draft for id if it is the open one.
func (c *Controller) Discard(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == id {
		c.closeDraft()
	}
}

func (c *Controller) closeDraft() {
	clear(c.drafts)
	c.open = ""
}

// checkInvariant panics if more than one draft is open; must hold c.mu.
func (c *Controller) checkInvariant() {
	if len(c.drafts) > 1 {
		panic(fmt.Sprintf("review: %d drafts open", len(c.drafts)))
	}
}

package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/core/async"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/notify"
	"github.com/joseph-ayodele/claims-intake/internal/preview"
	"github.com/joseph-ayodele/claims-intake/internal/store"
)

var ErrItemBusy = errors.New("item is still processing")

// File is one upload handed to Admit.
type File struct {
	Name      string
	MediaType string // declared type, may be empty
	Content   []byte
}

// RejectionError describes a file that was refused at admission.
type RejectionError struct {
	Filename  string
	Code      string
	MediaType string
	Reason    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Filename, e.Code, e.Reason)
}

type AdmitResult struct {
	Accepted []entity.IntakeItem
	Rejected []*RejectionError
}

// ItemStore is the part of the item store the manager needs.
type ItemStore interface {
	Insert(ctx context.Context, item entity.IntakeItem) error
	Get(ctx context.Context, id string) (entity.IntakeItem, error)
	Patch(ctx context.Context, id string, p store.Patch) (entity.IntakeItem, error)
	Remove(ctx context.Context, id string) (entity.IntakeItem, error)
}

type Previews interface {
	Acquire(p preview.Preview) (string, error)
	Release(ref string)
	Close()
}

// Manager validates uploads, registers items and dispatches their processing.
type Manager struct {
	logger   *slog.Logger
	items    ItemStore
	previews Previews
	queue    async.Queue
	notifier notify.Sink
	newID    func() string
}

func NewManager(logger *slog.Logger, items ItemStore, previews Previews, queue async.Queue, notifier notify.Sink) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogSink(logger)
	}
	return &Manager{
		logger:   logger,
		items:    items,
		previews: previews,
		queue:    queue,
		notifier: notifier,
		newID:    uuid.NewString,
	}
}

// Admit handles every file independently. Accepted files are in the store as
// Processing when Admit returns; recognition happens in the background.
// The error is only set when the session itself can no longer take items.
func (m *Manager) Admit(ctx context.Context, files []File) (AdmitResult, error) {
	var res AdmitResult
	for _, f := range files {
		item, rej, err := m.admitOne(ctx, f)
		if err != nil {
			return res, err
		}
		if rej != nil {
			res.Rejected = append(res.Rejected, rej)
			m.logger.Info("file rejected", "filename", rej.Filename, "code", rej.Code, "media_type", rej.MediaType)
			m.notifier.Notify(ctx, notify.Error(rej.Code, "", rej.Error()))
			continue
		}
		res.Accepted = append(res.Accepted, item)
	}
	return res, nil
}

func (m *Manager) admitOne(ctx context.Context, f File) (entity.IntakeItem, *RejectionError, error) {
	name := filepath.Base(strings.TrimSpace(f.Name))
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	mt := ResolveMediaType(f.MediaType, f.Content)
	if !constants.IsAcceptedMediaType(mt) {
		return entity.IntakeItem{}, &RejectionError{
			Filename:  name,
			Code:      notify.CodeInvalidFileType,
			MediaType: mt,
			Reason:    fmt.Sprintf("unsupported file type %q, only PDF and images are accepted", mt),
		}, nil
	}

	ref, err := m.previews.Acquire(preview.Preview{Filename: name, MediaType: mt, Content: f.Content})
	if err != nil {
		return entity.IntakeItem{}, nil, fmt.Errorf("acquire preview: %w", err)
	}
	now := time.Now()
	item := entity.IntakeItem{
		ID:         m.newID(),
		Filename:   name,
		MediaType:  mt,
		Status:     constants.ItemStatusProcessing,
		PreviewRef: ref,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.items.Insert(ctx, item); err != nil {
		m.previews.Release(ref)
		return entity.IntakeItem{}, nil, fmt.Errorf("insert item: %w", err)
	}
	m.logger.Info("file admitted", "item_id", item.ID, "filename", name, "media_type", mt, "bytes", len(f.Content))

	if err := m.queue.Enqueue(ctx, async.Job{ItemID: item.ID, Filename: name, SubmittedAt: now}); err != nil {
		// the item stays visible, settled as failed
		msg := fmt.Sprintf("could not schedule processing: %v", err)
		if updated, perr := m.items.Patch(context.WithoutCancel(ctx), item.ID, store.Failed(msg)); perr == nil {
			item = updated
		}
		m.notifier.Notify(ctx, notify.Error(notify.CodeRecognitionFailure, item.ID, msg))
	}
	return item, nil, nil
}

// ResolveMediaType trusts a declared type unless it is missing or generic, in
// which case the content is sniffed.
func ResolveMediaType(declared string, content []byte) string {
	mt := constants.NormalizeMediaType(declared)
	if mt == "" || mt == constants.MediaTypeOctetStream {
		mt = constants.NormalizeMediaType(mimetype.Detect(content).String())
	}
	return mt
}

// Remove drops a settled item and releases its preview.
func (m *Manager) Remove(ctx context.Context, id string) error {
	item, err := m.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == constants.ItemStatusProcessing {
		return ErrItemBusy
	}
	if _, err := m.items.Remove(ctx, id); err != nil {
		return err
	}
	m.previews.Release(item.PreviewRef)
	m.logger.Info("item removed", "item_id", id, "filename", item.Filename)
	return nil
}

// Close drains outstanding work within ctx and releases every preview.
func (m *Manager) Close(ctx context.Context) {
	m.queue.Shutdown(ctx)
	m.previews.Close()
	m.logger.Info("intake closed")
}

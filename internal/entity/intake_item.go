package entity

import (
	"time"

	"github.com/joseph-ayodele/claims-intake/constants"
)

// IntakeItem is one uploaded file's tracked processing record.
type IntakeItem struct {
	ID         string               `json:"id"`
	Filename   string               `json:"filename"`
	MediaType  string               `json:"media_type"`
	Status     constants.ItemStatus `json:"status"`
	Fields     *ExtractedFields     `json:"fields,omitempty"`
	PreviewRef string               `json:"preview_ref,omitempty"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Clone returns a deep copy so callers never share Fields with the store.
func (i IntakeItem) Clone() IntakeItem {
	out := i
	if i.Fields != nil {
		f := *i.Fields
		out.Fields = &f
	}
	return out
}

package extract

import "github.com/joseph-ayodele/claims-intake/internal/entity"

// FieldExtractor turns recognized text into claim fields. Implementations must be
// total: every field resolves to a value or the "Not found" sentinel.
type FieldExtractor interface {
	Extract(text string) entity.ExtractedFields
}

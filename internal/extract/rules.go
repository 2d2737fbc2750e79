package extract

import (
	"regexp"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

// Rule maps one labeled line onto a field.
type Rule struct {
	Field entity.FieldName
	// Pattern must capture the remainder of the labeled line in group 1.
	Pattern *regexp.Regexp
	// Constrain, when set, canonicalizes a captured value or rejects it.
	Constrain func(string) (string, bool)
}

// labelPattern builds a case-insensitive matcher for `label[ :]value` on a single line.
// The label has to start and end on a word boundary; the value stops at the line break.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + label + `)\b[ \t]*:?[ \t]*([^\r\n]*)`)
}

func claimTypeOnly(v string) (string, bool) {
	ct, ok := constants.CanonicalizeClaimType(v)
	return string(ct), ok
}

// DefaultRules is the label set printed on FRA claim forms.
var DefaultRules = []Rule{
	{Field: entity.FieldClaimantName, Pattern: labelPattern(`claimant`)},
	{Field: entity.FieldVillage, Pattern: labelPattern(`village`)},
	{Field: entity.FieldClaimType, Pattern: labelPattern(`type`), Constrain: claimTypeOnly},
	{Field: entity.FieldCoordinates, Pattern: labelPattern(`coordinates?`)},
}

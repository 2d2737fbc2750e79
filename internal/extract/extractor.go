package extract

import (
	"strings"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

// RuleExtractor applies a rule table to recognized text.
type RuleExtractor struct {
	rules []Rule
}

// NewRuleExtractor returns an extractor over rules, or DefaultRules when none are given.
func NewRuleExtractor(rules ...Rule) *RuleExtractor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &RuleExtractor{rules: rules}
}

// Extract never fails. Each field degrades to constants.NotFound on its own.
func (e *RuleExtractor) Extract(text string) entity.ExtractedFields {
	out := entity.UnresolvedFields()
	for _, r := range e.rules {
		v, ok := apply(r, text)
		if !ok {
			continue
		}
		// rule fields always come from entity.AllFields
		_ = out.Set(r.Field, v)
	}
	return out
}

// apply returns the first non-empty value on a line labeled for r.
func apply(r Rule, text string) (string, bool) {
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		if r.Constrain != nil {
			return r.Constrain(v)
		}
		return v, true
	}
	return "", false
}

// Extract runs the default rule set.
func Extract(text string) entity.ExtractedFields {
	return defaultExtractor.Extract(text)
}

var defaultExtractor = NewRuleExtractor()

package constants

import (
	"strings"
)

// NotFound is the sentinel stored in any field that could not be resolved.
const NotFound = "Not found"

// ClaimType is the closed set of forest-rights claim categories.
type ClaimType string

const (
	ClaimTypeIFR ClaimType = "IFR" // Individual Forest Rights
	ClaimTypeCFR ClaimType = "CFR" // Community Forest Rights
	ClaimTypeCR  ClaimType = "CR"  // Community Rights
)

var allClaimTypes = []ClaimType{
	ClaimTypeIFR,
	ClaimTypeCFR,
	ClaimTypeCR,
}

// ClaimTypesAsStrings returns the enum values in declaration order.
func ClaimTypesAsStrings() []string {
	result := make([]string, len(allClaimTypes))
	for i, ct := range allClaimTypes {
		result[i] = string(ct)
	}
	return result
}

// CanonicalizeClaimType maps free text onto the enum, case-insensitively.
// Anything that is not exactly one of the three codes is unresolved.
func CanonicalizeClaimType(input string) (ClaimType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, ct := range allClaimTypes {
		if normalized == string(ct) {
			return ct, true
		}
	}
	return "", false
}

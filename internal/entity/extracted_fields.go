package entity

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/claims-intake/constants"
)

// FieldName identifies one of the extracted claim fields.
type FieldName string

const (
	FieldClaimantName FieldName = "claimantName"
	FieldVillage      FieldName = "village"
	FieldClaimType    FieldName = "claimType"
	FieldCoordinates  FieldName = "coordinates"
)

var ErrUnknownField = errors.New("unknown field")

// AllFields lists the fields in display order.
var AllFields = []FieldName{FieldClaimantName, FieldVillage, FieldClaimType, FieldCoordinates}

// ExtractedFields is the structured record parsed out of recognized text.
// Unresolved values hold constants.NotFound.
type ExtractedFields struct {
	ClaimantName string `json:"claimantName"`
	Village      string `json:"village"`
	ClaimType    string `json:"claimType"`
	Coordinates  string `json:"coordinates"`
}

// UnresolvedFields returns a record with every field set to the sentinel.
func UnresolvedFields() ExtractedFields {
	return ExtractedFields{
		ClaimantName: constants.NotFound,
		Village:      constants.NotFound,
		ClaimType:    constants.NotFound,
		Coordinates:  constants.NotFound,
	}
}

// Get returns the value of the named field.
func (f ExtractedFields) Get(name FieldName) (string, error) {
	switch name {
	case FieldClaimantName:
		return f.ClaimantName, nil
	case FieldVillage:
		return f.Village, nil
	case FieldClaimType:
		return f.ClaimType, nil
	case FieldCoordinates:
		return f.Coordinates, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownField, name)
	}
}

// Set assigns the named field. No validation beyond the name.
func (f *ExtractedFields) Set(name FieldName, value string) error {
	switch name {
	case FieldClaimantName:
		f.ClaimantName = value
	case FieldVillage:
		f.Village = value
	case FieldClaimType:
		f.ClaimType = value
	case FieldCoordinates:
		f.Coordinates = value
	default:
		return fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	return nil
}

// Resolved reports how many fields hold something other than the sentinel.
func (f ExtractedFields) Resolved() int {
	n := 0
	for _, v := range []string{f.ClaimantName, f.Village, f.ClaimType, f.Coordinates} {
		if v != "" && v != constants.NotFound {
			n++
		}
	}
	return n
}

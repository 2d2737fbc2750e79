package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

func TestExtract_FullForm(t *testing.T) {
	text := "Claimant: Ramesh Kumar\nVillage: Khandwa\nType: IFR\nCoordinates: 22.71,76.35"

	got := Extract(text)
	want := entity.ExtractedFields{
		ClaimantName: "Ramesh Kumar",
		Village:      "Khandwa",
		ClaimType:    "IFR",
		Coordinates:  "22.71,76.35",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SingleFields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field entity.FieldName
		want  string
	}{
		{"claimant", "Claimant: John Doe", entity.FieldClaimantName, "John Doe"},
		{"claimant lower case", "claimant: john doe", entity.FieldClaimantName, "john doe"},
		{"claimant no colon", "CLAIMANT   Sita Bai", entity.FieldClaimantName, "Sita Bai"},
		{"missing village", "Claimant: John Doe\nType: CR", entity.FieldVillage, constants.NotFound},
		{"type not in enum", "Type: XYZ", entity.FieldClaimType, constants.NotFound},
		{"type lower case", "Type: cfr", entity.FieldClaimType, "CFR"},
		{"type with trailing text", "Type: IFR land", entity.FieldClaimType, constants.NotFound},
		{"type inside word ignored", "Prototype: CR", entity.FieldClaimType, constants.NotFound},
		{"coordinate singular", "Coordinate: 19.31, 81.96", entity.FieldCoordinates, "19.31, 81.96"},
		{"coordinates trimmed", "Coordinates:   18.89 N 81.35 E   ", entity.FieldCoordinates, "18.89 N 81.35 E"},
		{"value stops at line end", "Village: Bastar\r\nDistrict: Bastar", entity.FieldVillage, "Bastar"},
		{"no multi-line values", "Village:\nBastar", entity.FieldVillage, constants.NotFound},
		{"first match wins", "Village: Dantewada\nVillage: Raipur", entity.FieldVillage, "Dantewada"},
		{"empty label skipped", "Village:\nsomething\nVillage: Ranchi", entity.FieldVillage, "Ranchi"},
		{"empty text", "", entity.FieldClaimantName, constants.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text).Get(tt.field)
			if err != nil {
				t.Fatalf("get %s: %v", tt.field, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestExtract_NoisyText(t *testing.T) {
	text := `FOREST RIGHTS ACT - FORM A
	 ----
claimant :  Meera Patel
Village :Bhopal
Claim type:   cr
`
	got := Extract(text)
	if got.ClaimantName != "Meera Patel" {
		t.Errorf("claimantName = %q", got.ClaimantName)
	}
	if got.Village != "Bhopal" {
		t.Errorf("village = %q", got.Village)
	}
	if got.ClaimType != "CR" {
		t.Errorf("claimType = %q", got.ClaimType)
	}
	if got.Coordinates != constants.NotFound {
		t.Errorf("coordinates = %q, want sentinel", got.Coordinates)
	}
}

func TestNewRuleExtractor_CustomRules(t *testing.T) {
	x := NewRuleExtractor(Rule{Field: entity.FieldVillage, Pattern: labelPattern(`gram`)})

	got := x.Extract("Gram: Khandwa\nVillage: ignored")
	if got.Village != "Khandwa" {
		t.Errorf("village = %q, want Khandwa", got.Village)
	}
	if got.ClaimantName != constants.NotFound {
		t.Errorf("claimantName = %q, want sentinel", got.ClaimantName)
	}
}

// The first labeled line decides claimType; later "type" lines are not consulted.
func TestExtract_FirstTypeLineDecides(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"invalid first line", "Document type: Form A\nClaim Type: IFR", constants.NotFound},
		{"valid first line", "Claim Type: cfr\nDocument type: Form A", "CFR"},
		{"blank first line skipped", "Type:\nClaim Type: CR", "CR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract(tc.text).ClaimType; got != tc.want {
				t.Fatalf("ClaimType = %q, want %q", got, tc.want)
			}
		})
	}
}

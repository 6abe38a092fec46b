package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func validInput() CreateLeadInput {
	return CreateLeadInput{
		FirstName: "Ana",
		LastName:  "Lee",
		Email:     "ana@example.com",
		Resume:    "https://example.com/cv.pdf",
	}
}

func TestValidateCreation_OK_Normalizes(t *testing.T) {
	in := CreateLeadInput{
		FirstName: "  Jose\u0301 ", // decomposed e + combining acute
		LastName:  "\tLee\n",
		Email:     "  Ana.Lee@Example.COM ",
		Resume:    " cv ",
	}
	out, err := ValidateCreation(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FirstName != "Jos\u00e9" {
		t.Fatalf("expected NFC composed name, got %q", out.FirstName)
	}
	if out.LastName != "Lee" || out.Resume != "cv" {
		t.Fatalf("expected trimmed fields, got %+v", out)
	}
	if out.Email != "Ana.Lee@example.com" {
		t.Fatalf("expected domain lowercased only, got %q", out.Email)
	}
}

func TestValidateCreation_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*CreateLeadInput)
		field string
	}{
		{"first_name empty", func(in *CreateLeadInput) { in.FirstName = "" }, "first_name"},
		{"last_name whitespace", func(in *CreateLeadInput) { in.LastName = "   " }, "last_name"},
		{"email empty", func(in *CreateLeadInput) { in.Email = "" }, "email"},
		{"resume empty", func(in *CreateLeadInput) { in.Resume = "" }, "resume"},
		{"email malformed", func(in *CreateLeadInput) { in.Email = "not-an-email" }, "email"},
		{"first_name too long", func(in *CreateLeadInput) { in.FirstName = strings.Repeat("a", 256) }, "first_name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.edit(&in)
			_, err := ValidateCreation(in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(ve.Fields) != 1 || ve.Fields[0].Field != tc.field {
				t.Fatalf("expected single failure on %q, got %+v", tc.field, ve.Fields)
			}
		})
	}
}

func TestValidateCreation_ReportsEveryField(t *testing.T) {
	_, err := ValidateCreation(CreateLeadInput{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Fields) != 4 {
		t.Fatalf("expected 4 failing fields, got %+v", ve.Fields)
	}
	if !strings.Contains(ve.Error(), "first_name is required") {
		t.Fatalf("error text should name fields: %q", ve.Error())
	}
}

func TestValidateStateUpdate(t *testing.T) {
	for _, ok := range []string{"PENDING", "REACHED_OUT"} {
		got, err := ValidateStateUpdate(ok)
		if err != nil || got != domain.LeadState(ok) {
			t.Fatalf("ValidateStateUpdate(%q) = (%q, %v)", ok, got, err)
		}
	}
	for _, bad := range []string{"", "pending", "Reached_Out", "ARCHIVED", " PENDING"} {
		if _, err := ValidateStateUpdate(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("ValidateStateUpdate(%q) expected ErrValidation, got %v", bad, err)
		}
	}
}

func TestValidateStateUpdate_HintListsEveryState(t *testing.T) {
	_, err := ValidateStateUpdate("CLOSED")
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 1 || ve.Fields[0].Field != "state" {
		t.Fatalf("expected a single state field error, got %v", err)
	}
	for _, st := range domain.LeadStates {
		if !strings.Contains(ve.Fields[0].Message, st.String()) {
			t.Fatalf("hint %q does not mention %s", ve.Fields[0].Message, st)
		}
	}
}

func TestCreateLeadInput_Fingerprint(t *testing.T) {
	a, err := ValidateCreation(validInput())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	spaced := validInput()
	spaced.FirstName = "  Ana "
	spaced.Email = "ana@EXAMPLE.com"
	b, err := ValidateCreation(spaced)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equivalent payloads must share a fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Fatalf("expected hex sha256, got %q", a.Fingerprint())
	}

	other := a
	other.Email = "eve@example.com"
	if other.Fingerprint() == a.Fingerprint() {
		t.Fatalf("different payloads must not share a fingerprint")
	}

	// Field boundaries are part of the hash.
	x := CreateLeadInput{FirstName: "AnaL", LastName: "ee", Email: "e", Resume: "r"}
	y := CreateLeadInput{FirstName: "Ana", LastName: "Lee", Email: "e", Resume: "r"}
	if x.Fingerprint() == y.Fingerprint() {
		t.Fatalf("shifting characters across fields must change the fingerprint")
	}
}

func TestValidationError_EmptyFields(t *testing.T) {
	if got := (&ValidationError{}).Error(); got != ErrValidation.Error() {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNormalizeEmail_NoAt(t *testing.T) {
	if got := normalizeEmail("  Plain "); got != "Plain" {
		t.Fatalf("got %q", got)
	}
}

// Package services – lead validation
//
// Input normalization and field checks for lead creation and state updates.
// Struct rules are declared with go-playground/validator tags; failures are
// translated into a *ValidationError naming each offending JSON field.
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// CreateLeadInput is the client-supplied payload for a new lead.
type CreateLeadInput struct {
	FirstName string `json:"first_name" validate:"required,max=255" example:"Ana"`
	LastName  string `json:"last_name" validate:"required,max=255" example:"Lee"`
	Email     string `json:"email" validate:"required,email,max=320" example:"ana.lee@example.com"`
	Resume    string `json:"resume" validate:"required" example:"https://example.com/ana-lee-cv.pdf"`
}

// UpdateStateInput is the payload for a state change.
type UpdateStateInput struct {
	State string `json:"state" example:"REACHED_OUT"`
}

var validate = newValidator()

// stateRule and stateHint are derived from domain.LeadStates.
var stateRule, stateHint = func() (string, string) {
	names := make([]string, len(domain.LeadStates))
	for i, st := range domain.LeadStates {
		names[i] = st.String()
	}
	return "required,oneof=" + strings.Join(names, " "), "must be one of " + strings.Join(names, ", ")
}()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreation normalizes in and checks every field. Names and resume are
// trimmed and NFC-normalized; the email is trimmed and its domain lowercased.
func ValidateCreation(in CreateLeadInput) (CreateLeadInput, error) {
	out := CreateLeadInput{
		FirstName: normalizeText(in.FirstName),
		LastName:  normalizeText(in.LastName),
		Email:     normalizeEmail(in.Email),
		Resume:    normalizeText(in.Resume),
	}
	if err := validate.Struct(out); err != nil {
		return CreateLeadInput{}, toValidationError(err)
	}
	return out, nil
}

// Fingerprint returns the hex SHA-256 of the payload fields. Call it on the
// output of ValidateCreation so equivalent submissions hash alike.
func (in CreateLeadInput) Fingerprint() string {
	h := sha256.New()
	for _, f := range []string{in.FirstName, in.LastName, in.Email, in.Resume} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateStateUpdate accepts exactly one of domain.LeadStates
// (case-sensitive). Any state may move to any state, including itself.
func ValidateStateUpdate(state string) (domain.LeadState, error) {
	if err := validate.Var(state, stateRule); err != nil {
		return "", &ValidationError{Fields: []FieldError{{
			Field:   "state",
			Message: stateHint,
		}}}
	}
	return domain.LeadState(state), nil
}

func toValidationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// normalizeEmail lowercases only the domain part; local parts may be
// case-sensitive.
func normalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}

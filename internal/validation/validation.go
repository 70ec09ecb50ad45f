// Package validation checks inbound event payloads before they reach
// persistence. A payload either passes or is dropped; no detail is reported
// back to the client.
package validation

import (
	"encoding/json"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

type normalizer interface {
	Normalize()
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("uuid_any", func(fl validator.FieldLevel) bool {
		return IsUUID(fl.Field().String())
	})
	return &Validator{v: v}
}

// IsUUID reports whether s has the canonical 8-4-4-4-12 hex shape, in either case.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

// Valid runs the struct rules of payload.
func (v *Validator) Valid(payload any) bool {
	return v.v.Struct(payload) == nil
}

// Decode unmarshals raw into payload, normalises it and validates it.
// It reports false for anything that should be dropped.
func (v *Validator) Decode(raw json.RawMessage, payload any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return false
	}
	if n, ok := payload.(normalizer); ok {
		n.Normalize()
	}
	return v.Valid(payload)
}

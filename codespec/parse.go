package codespec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseResult is either a valid spec or the reason the oracle output was
// rejected. Exactly one of Spec and Problem is set. Raw is the reply it was
// decoded from, when the caller kept it.
type ParseResult struct {
	Spec    *CodeSpec
	Problem string
	Raw     string
}

// OK reports whether the result carries a usable spec.
func (r ParseResult) OK() bool {
	return r.Spec != nil
}

// Valid wraps a spec that passed schema validation.
func Valid(spec CodeSpec) ParseResult {
	return ParseResult{Spec: &spec}
}

// Invalid records a schema mismatch.
func Invalid(format string, args ...any) ParseResult {
	return ParseResult{Problem: fmt.Sprintf(format, args...)}
}

// Decode parses JSON into a CodeSpec and checks it against the schema.
// Decoding and schema problems never escape as errors; they come back as an
// Invalid result so the caller can feed them to the next attempt.
func Decode(data []byte) ParseResult {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Invalid("response contained no JSON object")
	}
	var spec CodeSpec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return Invalid("response is not valid CodeSpec JSON: %v", err)
	}
	if err := Check(spec); err != nil {
		return Invalid("%v", err)
	}
	return Valid(spec)
}

// Check runs the struct-tag schema over spec.
func Check(spec CodeSpec) error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("schema mismatch: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must have at least " + fe.Param() + " entry"
	case "gt":
		return field + " must be greater than " + fe.Param()
	default:
		return field + " failed " + fe.Tag()
	}
}

package retry

import (
	"fmt"
	"strings"

	"auto_manim_codegen/validation"
)

// OracleParseError means the oracle never produced a CodeSpec that matched the
// schema, including on the final attempt.
type OracleParseError struct {
	Attempt int
	Message string
}

func (e *OracleParseError) Error() string {
	return fmt.Sprintf("retry: oracle output unusable on attempt %d: %s", e.Attempt, e.Message)
}

// ExhaustedRetriesError is returned when the budget ran out with units still
// failing. Results holds only the failed results of the final attempt; the
// passing ones stay on Outcome.Results.
type ExhaustedRetriesError struct {
	Attempts int
	Results  []validation.Result
}

func (e *ExhaustedRetriesError) Error() string {
	ids := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		ids = append(ids, r.UnitID)
	}
	return fmt.Sprintf("retry: %d unit(s) still failing after %d attempt(s): %s",
		len(e.Results), e.Attempts, strings.Join(ids, ", "))
}

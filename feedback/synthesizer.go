// Package feedback builds the corrective message sent to the oracle after a
// failed attempt.
package feedback

import (
	"fmt"
	"strings"

	"auto_manim_codegen/diagnostics"
	"auto_manim_codegen/validation"
)

// Action item texts. Which ones appear depends on the kinds present across
// the whole attempt, not per unit.
const (
	actionUndefinedName = "For every class or function reported as undefined, query the documentation " +
		"reference with a semantic keyword describing what you need (e.g. \"curved arrow\", \"number line\"). " +
		"Validate that the symbol exists before using it again, and use the exact name the reference returns."
	actionMissingAttribute = "For every method, property or animation reported as a missing attribute, query the " +
		"documentation reference for the object's real API and validate each method or animation before reuse."
	actionImportFailure = "Restrict imports to `" + diagnostics.SanctionedImport + "`. Do not import submodules, " +
		"other animation libraries, or names that are not exported by manim."
	actionClosing = "Replace every symbol you could not confirm with one you have confirmed, and confirm every " +
		"class, method and animation before emitting it."
)

// Synthesize builds the feedback for the next generation call from the failed
// results of one attempt, parsing diagnostics with the regex parser. The
// output depends only on its inputs.
func Synthesize(failed []validation.Result, attempt, maxAttempts int) string {
	return SynthesizeWith(diagnostics.RegexParser{}, failed, attempt, maxAttempts)
}

// SynthesizeWith is Synthesize with the diagnostics parser supplied by the
// caller. A nil parser means the regex parser.
func SynthesizeWith(parser diagnostics.Parser, failed []validation.Result, attempt, maxAttempts int) string {
	if parser == nil {
		parser = diagnostics.RegexParser{}
	}
	var sb strings.Builder

	fmt.Fprintf(&sb, "## SCENE VALIDATION FAILED (attempt %d/%d)\n\n", attempt, maxAttempts)
	fmt.Fprintf(&sb, "%d scene(s) failed to compile. Fix every issue below and regenerate the full CodeSpec.\n\n", len(failed))

	type parsed struct {
		unit    string
		records []diagnostics.Record
	}
	all := make([]parsed, 0, len(failed))

	for i, res := range failed {
		fmt.Fprintf(&sb, "### Failure %d: scene %s (class %s, file %s)\n\n", i+1, res.UnitID, res.EntityName, res.Filename)
		sb.WriteString("Error output:\n```\n")
		sb.WriteString(strings.TrimRight(res.Diagnostic, "\n"))
		sb.WriteString("\n```\n\n")
		sb.WriteString("Code that failed:\n```python\n")
		sb.WriteString(strings.TrimRight(res.Source, "\n"))
		sb.WriteString("\n```\n\n")

		all = append(all, parsed{unit: res.UnitID, records: parser.Parse(res.Diagnostic)})
	}

	var flat []diagnostics.Record
	for _, p := range all {
		flat = append(flat, p.records...)
	}
	kinds := diagnostics.Kinds(flat)

	if len(kinds) > 0 {
		sb.WriteString("### Root causes\n\n")
		for _, kind := range kinds {
			fmt.Fprintf(&sb, "%s:\n", kind)
			for _, p := range all {
				for _, r := range p.records {
					if r.Kind != kind {
						continue
					}
					sb.WriteString("- ")
					sb.WriteString(rootCause(p.unit, r))
					sb.WriteString("\n")
				}
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("### Action items\n\n")
	for i, item := range actionItems(kinds) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}

	return sb.String()
}

func rootCause(unit string, r diagnostics.Record) string {
	var line string
	if r.Symbol != "" {
		line = fmt.Sprintf("%s: '%s' - %s", unit, r.Symbol, r.Suggestion)
	} else {
		line = fmt.Sprintf("%s: %s: %s", unit, r.Kind, r.Message)
	}
	if r.Line > 0 {
		line += fmt.Sprintf(" (line %d)", r.Line)
	}
	return line
}

func actionItems(kinds []diagnostics.Kind) []string {
	present := make(map[diagnostics.Kind]bool, len(kinds))
	for _, k := range kinds {
		present[k] = true
	}
	var items []string
	if present[diagnostics.KindUndefinedName] {
		items = append(items, actionUndefinedName)
	}
	if present[diagnostics.KindMissingAttribute] {
		items = append(items, actionMissingAttribute)
	}
	if present[diagnostics.KindImportFailure] {
		items = append(items, actionImportFailure)
	}
	return append(items, actionClosing)
}

// SchemaMismatch is the feedback used when the oracle's reply could not be
// decoded into a CodeSpec. It carries no toolchain diagnostics.
func SchemaMismatch(problem string, attempt, maxAttempts int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## RESPONSE FORMAT ERROR (attempt %d/%d)\n\n", attempt, maxAttempts)
	sb.WriteString("Your previous response did not match the required CodeSpec schema:\n\n")
	sb.WriteString(problem)
	sb.WriteString("\n\n")
	sb.WriteString("Respond with a single JSON object of the form ")
	sb.WriteString(`{"imports": [...], "scenes": [{"scene_id", "class_name", "setup_code", "objects", "animations"}]}`)
	sb.WriteString(". Every object needs var_name and constructor, every animation needs call. ")
	sb.WriteString("Do not add commentary outside the JSON.\n")
	return sb.String()
}

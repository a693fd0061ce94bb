// Package validation runs rendered scenes through the external toolchain and
// collects one Result per unit.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// UnknownEntity is recorded when no scene class could be found in the source.
const UnknownEntity = "Unknown"

// ErrNoEntity is returned by ExtractEntityName when the source has no
// "class <Name>(Scene):" declaration.
var ErrNoEntity = errors.New(`no validated entity found (expected "class <Name>(Scene):")`)

// Only this one declaration shape is recognised. A differently shaped but
// valid declaration is reported as a structural failure.
var entityPattern = regexp.MustCompile(`class\s+(\w+)\(Scene\):`)

// Result is the outcome of validating one unit. It is read-only once built.
type Result struct {
	UnitID     string        `json:"unit_id"`
	EntityName string        `json:"entity_name"`
	Success    bool          `json:"success"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Source     string        `json:"source"`
	Filename   string        `json:"filename"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration"`
}

// ExtractEntityName returns the scene class declared in source.
func ExtractEntityName(source string) (string, error) {
	m := entityPattern.FindStringSubmatch(source)
	if len(m) < 2 {
		return "", ErrNoEntity
	}
	return m[1], nil
}

// UnitIDFromFilename strips the directory and extension: "scene_1.py" -> "scene_1".
func UnitIDFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TimeoutMessage is the single synthetic diagnostic recorded for a timed out unit.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Error: validation timed out after %s", timeout)
}

func structuralFailure(unitID, entity, source, filename string) Result {
	return Result{
		UnitID:     unitID,
		EntityName: entity,
		Diagnostic: "Error: " + ErrNoEntity.Error(),
		Source:     source,
		Filename:   filename,
		ExitCode:   -1,
	}
}

// AllPassed reports whether every result succeeded. An empty set passes.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// Failed returns the failing results, keeping their order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// ByUnit indexes results by unit id.
func ByUnit(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.UnitID] = r
	}
	return m
}

func sortByUnit(results []Result) {
	sort.Slice(results, func(i, j int) bool { return results[i].UnitID < results[j].UnitID })
}

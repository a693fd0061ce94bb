// Package formatter turns a CodeSpec into Manim scene source files.
package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"auto_manim_codegen/codespec"
)

// DefaultImport is used when the CodeSpec carries no imports of its own.
const DefaultImport = "from manim import *"

// scene ids name the artifact files, so they stay plain file-name tokens.
var sceneIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	classIndent = "    "
	bodyIndent  = "        "
)

// ConfigurationError means the CodeSpec itself is malformed. It is fatal: no
// amount of regeneration against the toolchain is expected to fix it.
type ConfigurationError struct {
	SceneID string
	Index   int
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	id := e.SceneID
	if id == "" {
		id = "#" + strconv.Itoa(e.Index)
	}
	return fmt.Sprintf("formatter: scene %s: %s %s", id, e.Field, e.Reason)
}

// Render returns scene_id -> python source for every unit in the CodeSpec.
func Render(spec codespec.CodeSpec) (map[string]string, error) {
	out := make(map[string]string, len(spec.Scenes))
	for i, unit := range spec.Scenes {
		if strings.TrimSpace(unit.SceneID) == "" {
			return nil, &ConfigurationError{Index: i, Field: "scene_id", Reason: "is required"}
		}
		if !sceneIDPattern.MatchString(unit.SceneID) {
			return nil, &ConfigurationError{SceneID: unit.SceneID, Index: i, Field: "scene_id", Reason: "must match " + sceneIDPattern.String()}
		}
		if strings.TrimSpace(unit.ClassName) == "" {
			return nil, &ConfigurationError{SceneID: unit.SceneID, Index: i, Field: "class_name", Reason: "is required"}
		}
		if _, dup := out[unit.SceneID]; dup {
			return nil, &ConfigurationError{SceneID: unit.SceneID, Index: i, Field: "scene_id", Reason: "is not unique"}
		}
		out[unit.SceneID] = RenderUnit(unit, spec.Imports)
	}
	return out, nil
}

// RenderUnit formats a single scene. It does not validate the unit.
func RenderUnit(unit codespec.CodeUnit, imports []string) string {
	var lines []string

	if len(imports) > 0 {
		lines = append(lines, imports...)
	} else {
		lines = append(lines, DefaultImport)
	}
	lines = append(lines, "", "")

	lines = append(lines, fmt.Sprintf("class %s(Scene):", unit.ClassName))
	lines = append(lines, classIndent+"def construct(self):")

	hasBody := false

	if len(unit.SetupCode) > 0 {
		lines = append(lines, bodyIndent+"# Setup")
		for _, stmt := range unit.SetupCode {
			lines = append(lines, bodyIndent+stmt)
		}
		lines = append(lines, "")
		hasBody = true
	}

	if len(unit.Objects) > 0 {
		lines = append(lines, bodyIndent+"# Objects")
		for _, obj := range unit.Objects {
			lines = append(lines, fmt.Sprintf("%s%s = %s", bodyIndent, obj.VarName, obj.Constructor))
			if obj.AddToScene {
				lines = append(lines, fmt.Sprintf("%sself.add(%s)", bodyIndent, obj.VarName))
			}
		}
		lines = append(lines, "")
		hasBody = true
	}

	if len(unit.Animations) > 0 {
		lines = append(lines, bodyIndent+"# Animations")
		for _, anim := range unit.Animations {
			if anim.RunTime != nil {
				lines = append(lines, fmt.Sprintf("%sself.play(%s, run_time=%s)", bodyIndent, anim.Call, formatRunTime(*anim.RunTime)))
			} else {
				lines = append(lines, fmt.Sprintf("%sself.play(%s)", bodyIndent, anim.Call))
			}
		}
		hasBody = true
	}

	if !hasBody {
		lines = append(lines, bodyIndent+"pass")
	}

	return strings.Join(lines, "\n")
}

// formatRunTime prints floats the way python would for literals: 2 -> 2.0.
func formatRunTime(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

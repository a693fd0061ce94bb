package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSpec = `{"imports":["from manim import *"],"scenes":[{"scene_id":"s1","class_name":"Intro","objects":[{"var_name":"c","constructor":"Circle()"}],"animations":[{"call":"Create(c)"}]}]}`

func TestPostProcess(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		ok      bool
		problem string
	}{
		{name: "bare json", raw: validSpec, ok: true},
		{name: "json fence", raw: "Here you go:\n\n```json\n" + validSpec + "\n```\nGood luck.", ok: true},
		{name: "unlabelled fence", raw: "```\n" + validSpec + "\n```", ok: true},
		{name: "python fence skipped", raw: "```python\nprint(1)\n```\n\n```json\n" + validSpec + "\n```", ok: true},
		{name: "brace span", raw: "Sure! " + validSpec + " Done.", ok: true},
		{name: "json then commentary", raw: validSpec + "\n\nI used only Manim classes.", ok: true},
		{name: "json then fenced note", raw: validSpec + "\n\n```python\nprint(1)\n```", ok: true},
		{name: "empty", raw: "   \n", problem: "empty response"},
		{name: "prose only", raw: "I cannot help with that.", problem: "not valid CodeSpec JSON"},
		{name: "no scenes", raw: `{"imports":[],"scenes":[]}`, problem: "schema mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := PostProcess(tt.raw)
			if tt.ok {
				require.True(t, res.OK(), res.Problem)
				assert.Equal(t, "s1", res.Spec.Scenes[0].SceneID)
				return
			}
			assert.False(t, res.OK())
			assert.Contains(t, res.Problem, tt.problem)
		})
	}
}

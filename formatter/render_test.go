package formatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_manim_codegen/codespec"
)

func ptr(v float64) *float64 { return &v }

func sampleSpec() codespec.CodeSpec {
	return codespec.CodeSpec{
		Imports: []string{"from manim import *", "import numpy as np"},
		Scenes: []codespec.CodeUnit{
			{
				SceneID:   "scene_1",
				ClassName: "Intro",
				SetupCode: []string{"self.camera.background_color = BLACK"},
				Objects: []codespec.SceneObject{
					{ObjectID: "o1", VarName: "circle", Constructor: "Circle(radius=1)", AddToScene: true},
					{ObjectID: "o2", VarName: "label", Constructor: `Text("hi")`},
				},
				Animations: []codespec.Animation{
					{AnimationID: "a1", Call: "Create(circle)", RunTime: ptr(2)},
					{AnimationID: "a2", Call: "Write(label)"},
				},
			},
			{SceneID: "scene_2", ClassName: "Empty"},
		},
	}
}

func TestRender(t *testing.T) {
	out, err := Render(sampleSpec())
	require.NoError(t, err)
	require.Len(t, out, 2)

	want := "from manim import *\n" +
		"import numpy as np\n" +
		"\n" +
		"\n" +
		"class Intro(Scene):\n" +
		"    def construct(self):\n" +
		"        # Setup\n" +
		"        self.camera.background_color = BLACK\n" +
		"\n" +
		"        # Objects\n" +
		"        circle = Circle(radius=1)\n" +
		"        self.add(circle)\n" +
		"        label = Text(\"hi\")\n" +
		"\n" +
		"        # Animations\n" +
		"        self.play(Create(circle), run_time=2.0)\n" +
		"        self.play(Write(label))"
	assert.Equal(t, want, out["scene_1"])
}

func TestRenderEmptyBodyGetsPlaceholder(t *testing.T) {
	src := RenderUnit(codespec.CodeUnit{SceneID: "s", ClassName: "Blank"}, nil)
	assert.Equal(t, "from manim import *\n\n\nclass Blank(Scene):\n    def construct(self):\n        pass", src)
}

func TestRenderDeterministic(t *testing.T) {
	first, err := Render(sampleSpec())
	require.NoError(t, err)
	second, err := Render(sampleSpec())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderConfigurationErrors(t *testing.T) {
	tests := []struct {
		name      string
		scenes    []codespec.CodeUnit
		wantField string
		wantText  string
	}{
		{
			name:      "missing scene id",
			scenes:    []codespec.CodeUnit{{ClassName: "A"}},
			wantField: "scene_id",
			wantText:  "scene #0: scene_id is required",
		},
		{
			name:      "missing class name",
			scenes:    []codespec.CodeUnit{{SceneID: "s1"}},
			wantField: "class_name",
			wantText:  "scene s1: class_name is required",
		},
		{
			name:      "id escapes output dir",
			scenes:    []codespec.CodeUnit{{SceneID: "../escaped", ClassName: "A"}},
			wantField: "scene_id",
			wantText:  "scene ../escaped: scene_id must match",
		},
		{
			name:      "id with separator",
			scenes:    []codespec.CodeUnit{{SceneID: "a/b", ClassName: "A"}},
			wantField: "scene_id",
			wantText:  "must match",
		},
		{
			name:      "duplicate id",
			scenes:    []codespec.CodeUnit{{SceneID: "s1", ClassName: "A"}, {SceneID: "s1", ClassName: "B"}},
			wantField: "scene_id",
			wantText:  "scene s1: scene_id is not unique",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(codespec.CodeSpec{Scenes: tt.scenes})
			assert.Nil(t, out)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestFormatRunTime(t *testing.T) {
	assert.Equal(t, "2.0", formatRunTime(2))
	assert.Equal(t, "0.5", formatRunTime(0.5))
	assert.Equal(t, "1.25", formatRunTime(1.25))
}

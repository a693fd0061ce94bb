package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeToolchain behaves like `manim --dry_run <file> <Scene>`: $1 is the staged
// file, $2 the scene class. It fails with a NameError when the file mentions
// Foo and hangs when it mentions Hang.
const fakeToolchain = `
test -f "$1" || { echo "missing staged file" >&2; exit 3; }
if grep -q Hang "$1"; then exec sleep 5; fi
if grep -q Foo "$1"; then
  echo 'Traceback (most recent call last):' >&2
  echo '  File "'"$1"'", line 7, in construct' >&2
  echo "NameError: name 'Foo' is not defined" >&2
  exit 1
fi
echo "rendered $2"
`

func newFakeValidator(t *testing.T, dir string, timeout time.Duration) *UnitValidator {
	t.Helper()
	v, err := NewUnitValidator("sh",
		WithArgs("-c", fakeToolchain, "sh"),
		WithTimeout(timeout),
		WithTempDir(dir),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	return v
}

func scene(class, body string) string {
	return "from manim import *\n\n\nclass " + class + "(Scene):\n    def construct(self):\n        " + body
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged sources must be removed")
}

func TestNewUnitValidatorRequiresBinary(t *testing.T) {
	_, err := NewUnitValidator("  ")
	assert.Error(t, err)
}

func TestUnitValidatorSuccess(t *testing.T) {
	dir := t.TempDir()
	v := newFakeValidator(t, dir, 5*time.Second)

	src := scene("Intro", "self.play(Create(Circle()))")
	res := v.Validate(context.Background(), src, "Intro", "scene_1.py")

	assert.True(t, res.Success)
	assert.Empty(t, res.Diagnostic)
	assert.Equal(t, "scene_1", res.UnitID)
	assert.Equal(t, "Intro", res.EntityName)
	assert.Equal(t, "scene_1.py", res.Filename)
	assert.Equal(t, src, res.Source)
	assert.Equal(t, 0, res.ExitCode)
	assertDirEmpty(t, dir)
}

func TestUnitValidatorCompileFailure(t *testing.T) {
	dir := t.TempDir()
	v := newFakeValidator(t, dir, 5*time.Second)

	res := v.Validate(context.Background(), scene("Broken", "x = Foo()"), "Broken", "scene_2.py")

	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Diagnostic, "NameError: name 'Foo' is not defined")
	assert.Contains(t, res.Diagnostic, "line 7")
	assertDirEmpty(t, dir)
}

func TestUnitValidatorTimeout(t *testing.T) {
	dir := t.TempDir()
	v := newFakeValidator(t, dir, 200*time.Millisecond)

	start := time.Now()
	res := v.Validate(context.Background(), scene("Slow", "Hang()"), "Slow", "slow.py")

	assert.Less(t, time.Since(start), 4*time.Second)
	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.Equal(t, TimeoutMessage(200*time.Millisecond), res.Diagnostic)
	assert.Equal(t, "Error: validation timed out after 200ms", res.Diagnostic)
	assertDirEmpty(t, dir)
}

func TestUnitValidatorNoEntitySkipsToolchain(t *testing.T) {
	dir := t.TempDir()
	// A binary that cannot exist proves the toolchain was never started.
	v, err := NewUnitValidator(filepath.Join(dir, "does-not-exist"), WithTempDir(dir))
	require.NoError(t, err)

	res := v.Validate(context.Background(), "def construct(): pass", "Intro", "scene_9.py")

	assert.False(t, res.Success)
	assert.Equal(t, "Error: "+ErrNoEntity.Error(), res.Diagnostic)
	assert.Equal(t, "scene_9", res.UnitID)
	assertDirEmpty(t, dir)
}

func TestUnitValidatorMissingBinary(t *testing.T) {
	dir := t.TempDir()
	v, err := NewUnitValidator(filepath.Join(dir, "does-not-exist"), WithTempDir(dir))
	require.NoError(t, err)

	res := v.Validate(context.Background(), scene("Intro", "pass"), "Intro", "scene_1.py")

	assert.False(t, res.Success)
	assert.Contains(t, res.Diagnostic, "Error: running")
	assertDirEmpty(t, dir)
}

func TestExtractEntityName(t *testing.T) {
	name, err := ExtractEntityName(scene("Intro", "pass"))
	require.NoError(t, err)
	assert.Equal(t, "Intro", name)

	_, err = ExtractEntityName("class Intro(MovingCameraScene):\n    pass")
	assert.True(t, errors.Is(err, ErrNoEntity))
}

func TestUnitIDFromFilename(t *testing.T) {
	assert.Equal(t, "scene_1", UnitIDFromFilename("scene_1.py"))
	assert.Equal(t, "scene_1", UnitIDFromFilename("/tmp/out/scene_1.py"))
	assert.Equal(t, "plain", UnitIDFromFilename("plain"))
}

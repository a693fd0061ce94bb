package validation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// countingValidator records peak concurrency and fails units whose source
// mentions Foo. Units mentioning Slow take longer.
type countingValidator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
}

func (c *countingValidator) Validate(_ context.Context, source, entity, filename string) Result {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer c.inFlight.Add(-1)

	d := c.delay
	if strings.Contains(source, "Slow") {
		d *= 5
	}
	time.Sleep(d)

	res := Result{UnitID: UnitIDFromFilename(filename), EntityName: entity, Source: source, Filename: filename, Success: true}
	if strings.Contains(source, "Foo") {
		res.Success = false
		res.Diagnostic = "NameError: name 'Foo' is not defined"
	}
	return res
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &countingValidator{delay: 20 * time.Millisecond}
	d := NewDispatcher(fake, WithWorkers(3), WithDispatchLogger(zaptest.NewLogger(t)))

	units := make(map[string]string)
	for i := range 10 {
		units[fmt.Sprintf("scene_%02d", i)] = scene(fmt.Sprintf("S%d", i), "pass")
	}

	results := d.ValidateAll(context.Background(), units)

	require.Len(t, results, 10)
	assert.EqualValues(t, 10, fake.calls.Load())
	assert.LessOrEqual(t, fake.peak.Load(), int32(3))
	assert.Zero(t, fake.inFlight.Load(), "barrier returned before workers finished")
	assert.True(t, AllPassed(results))
}

func TestDispatcherBarrierAndIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &countingValidator{delay: 10 * time.Millisecond}
	d := NewDispatcher(fake, WithWorkers(4))

	units := map[string]string{
		"a": scene("A", "pass"),
		"b": scene("B", "x = Foo()"),
		"c": scene("C", "Slow()"),
	}
	results := d.ValidateAll(context.Background(), units)

	byUnit := ByUnit(results)
	require.Len(t, byUnit, 3)
	assert.True(t, byUnit["a"].Success)
	assert.False(t, byUnit["b"].Success)
	assert.True(t, byUnit["c"].Success)
	assert.Equal(t, "b.py", byUnit["b"].Filename)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].UnitID)
}

func TestDispatcherStructuralFailureSkipsWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &countingValidator{}
	d := NewDispatcher(fake)

	results := d.ValidateAll(context.Background(), map[string]string{
		"good": scene("Good", "pass"),
		"bad":  "print('no scene here')",
	})

	byUnit := ByUnit(results)
	require.Len(t, byUnit, 2)
	assert.EqualValues(t, 1, fake.calls.Load())
	assert.False(t, byUnit["bad"].Success)
	assert.Equal(t, UnknownEntity, byUnit["bad"].EntityName)
	assert.Contains(t, byUnit["bad"].Diagnostic, "no validated entity found")
}

func TestDispatcherTimeoutDoesNotAffectSiblings(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	v := newFakeValidator(t, dir, 300*time.Millisecond)
	d := NewDispatcher(v, WithWorkers(2))

	results := d.ValidateAll(context.Background(), map[string]string{
		"fast":   scene("Fast", "pass"),
		"hung":   scene("Hung", "Hang()"),
		"broken": scene("Broken", "Foo()"),
	})

	byUnit := ByUnit(results)
	require.Len(t, byUnit, 3)
	assert.True(t, byUnit["fast"].Success)
	assert.True(t, byUnit["hung"].TimedOut)
	assert.Equal(t, TimeoutMessage(300*time.Millisecond), byUnit["hung"].Diagnostic)
	assert.False(t, byUnit["broken"].TimedOut)
	assert.Contains(t, byUnit["broken"].Diagnostic, "NameError")
	assertDirEmpty(t, dir)
}

func TestDispatcherEmptyInput(t *testing.T) {
	d := NewDispatcher(&countingValidator{})
	results := d.ValidateAll(context.Background(), nil)
	assert.Empty(t, results)
	assert.True(t, AllPassed(results))
}

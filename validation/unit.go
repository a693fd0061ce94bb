package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds one toolchain invocation.
	DefaultTimeout = 10 * time.Second
	// DefaultExtension is the suffix of staged and published scene files.
	DefaultExtension = ".py"

	// killGrace is how long Wait keeps draining pipes after the process is killed.
	killGrace = time.Second
)

// UnitValidator checks a single source unit by running the toolchain against
// a temporary copy of it.
type UnitValidator struct {
	binary  string
	args    []string
	timeout time.Duration
	tempDir string
	ext     string
	logger  *zap.Logger
}

// Option configures a UnitValidator.
type Option func(*UnitValidator)

// WithArgs sets the arguments placed before the file path and entity name.
func WithArgs(args ...string) Option {
	return func(v *UnitValidator) {
		v.args = slices.Clone(args)
	}
}

// WithTimeout sets the per-invocation wall-clock limit.
func WithTimeout(d time.Duration) Option {
	return func(v *UnitValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithTempDir sets where staged sources are written. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(v *UnitValidator) {
		v.tempDir = dir
	}
}

// WithExtension sets the staged file suffix.
func WithExtension(ext string) Option {
	return func(v *UnitValidator) {
		if ext != "" {
			v.ext = ext
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *UnitValidator) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewUnitValidator builds a validator for the given toolchain binary, e.g.
// NewUnitValidator("manim", WithArgs("--dry_run")).
func NewUnitValidator(binary string, opts ...Option) (*UnitValidator, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, errors.New("validation: toolchain binary is required")
	}
	v := &UnitValidator{
		binary:  binary,
		timeout: DefaultTimeout,
		ext:     DefaultExtension,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Timeout returns the configured per-invocation limit.
func (v *UnitValidator) Timeout() time.Duration {
	return v.timeout
}

// Extension returns the staged file suffix.
func (v *UnitValidator) Extension() string {
	return v.ext
}

// Validate runs the toolchain once against source. Failures are returned as
// data; Validate never retries.
func (v *UnitValidator) Validate(ctx context.Context, source, entity, filename string) Result {
	start := time.Now()
	unitID := UnitIDFromFilename(filename)
	ctx, span := startUnitSpan(ctx, unitID, entity)
	defer span.End()

	found, err := ExtractEntityName(source)
	if err != nil {
		if entity == "" {
			entity = UnknownEntity
		}
		res := structuralFailure(unitID, entity, source, filename)
		res.Duration = time.Since(start)
		v.logger.Debug("no scene class in source", zap.String("unit", unitID))
		finishUnit(ctx, span, res, outcomeStructural)
		return res
	}
	if entity == "" {
		entity = found
	}

	res := Result{
		UnitID:     unitID,
		EntityName: entity,
		Source:     source,
		Filename:   filename,
		ExitCode:   -1,
	}
	outcome := v.run(ctx, &res)
	res.Duration = time.Since(start)

	v.logger.Debug("unit validated",
		zap.String("unit", unitID),
		zap.String("entity", entity),
		zap.Bool("success", res.Success),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration),
	)
	finishUnit(ctx, span, res, outcome)
	return res
}

func (v *UnitValidator) run(ctx context.Context, res *Result) string {
	tmp, err := os.CreateTemp(v.tempDir, "scene-*"+v.ext)
	if err != nil {
		res.Diagnostic = fmt.Sprintf("Error: staging source: %v", err)
		return outcomeFailure
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			v.logger.Warn("removing staged source", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	_, writeErr := tmp.WriteString(res.Source)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		res.Diagnostic = fmt.Sprintf("Error: writing staged source: %v", err)
		return outcomeFailure
	}

	runCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	args := append(slices.Clone(v.args), path, res.EntityName)
	cmd := exec.CommandContext(runCtx, v.binary, args...)
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case runErr == nil:
		res.Success = true
		return outcomeSuccess
	case ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Whatever the killed process printed is discarded.
		res.TimedOut = true
		res.Diagnostic = TimeoutMessage(v.timeout)
		return outcomeTimeout
	case ctx.Err() != nil:
		res.Diagnostic = fmt.Sprintf("Error: validation cancelled: %v", ctx.Err())
		return outcomeFailure
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		res.Diagnostic = fmt.Sprintf("Error: running %s: %v", v.binary, runErr)
		return outcomeFailure
	}
	res.Diagnostic = stderr.String()
	if strings.TrimSpace(res.Diagnostic) == "" {
		res.Diagnostic = stdout.String()
	}
	return outcomeFailure
}

// Package retry drives generation, validation and feedback until every scene
// compiles or the attempt budget runs out.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"auto_manim_codegen/codespec"
	"auto_manim_codegen/diagnostics"
	"auto_manim_codegen/feedback"
	"auto_manim_codegen/formatter"
	"auto_manim_codegen/generator"
	"auto_manim_codegen/validation"
)

const (
	// DefaultMaxAttempts is the attempt budget when none is configured.
	DefaultMaxAttempts = 3

	maxLookups = 5
)

// Oracle produces a CodeSpec for a brief. earlier replays the finished
// attempts, oldest first, each with the feedback it earned. A schema problem
// is returned in the ParseResult; the error is for transport failures only.
type Oracle interface {
	Generate(ctx context.Context, brief generator.Brief, earlier []generator.Exchange) (codespec.ParseResult, error)
}

// Dispatcher validates all rendered units and returns once every one is done.
type Dispatcher interface {
	ValidateAll(ctx context.Context, units map[string]string) []validation.Result
}

// SymbolLookup resolves a symbol against the documentation reference.
type SymbolLookup interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// Outcome is the terminal state of a run. Results is the full result set of
// the final validated attempt.
type Outcome struct {
	Status   State
	Spec     *codespec.CodeSpec
	Rendered map[string]string
	Results  []validation.Result
	Attempts int
	Problem  string
	Session  *Session
}

// Err maps a non-success outcome to its error.
func (o *Outcome) Err() error {
	switch o.Status {
	case StateSuccess:
		return nil
	case StateExhausted:
		return &ExhaustedRetriesError{Attempts: o.Attempts, Results: validation.Failed(o.Results)}
	case StateFatalParse:
		return &OracleParseError{Attempt: o.Attempts, Message: o.Problem}
	default:
		return fmt.Errorf("retry: run ended in non-terminal state %s", o.Status)
	}
}

// FailedUnits lists the ids of units that did not pass in the final attempt.
func (o *Outcome) FailedUnits() []string {
	var ids []string
	for _, r := range validation.Failed(o.Results) {
		ids = append(ids, r.UnitID)
	}
	return ids
}

// Controller runs the retry loop.
type Controller struct {
	oracle      Oracle
	dispatcher  Dispatcher
	maxAttempts int
	lookup      SymbolLookup
	parser      diagnostics.Parser
	logger      *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxAttempts sets the attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLookup enables documentation lookups for unresolved symbols.
func WithLookup(l SymbolLookup) Option {
	return func(c *Controller) { c.lookup = l }
}

// WithParser replaces the regex diagnostics parser. It drives both the
// feedback's root causes and the symbols sent to the documentation lookup.
func WithParser(p diagnostics.Parser) Option {
	return func(c *Controller) {
		if p != nil {
			c.parser = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(oracle Oracle, dispatcher Dispatcher, opts ...Option) (*Controller, error) {
	if oracle == nil {
		return nil, errors.New("retry: oracle is required")
	}
	if dispatcher == nil {
		return nil, errors.New("retry: dispatcher is required")
	}
	c := &Controller{
		oracle:      oracle,
		dispatcher:  dispatcher,
		maxAttempts: DefaultMaxAttempts,
		parser:      diagnostics.RegexParser{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run drives the loop to a terminal state. The returned error is set only for
// problems outside the loop's own taxonomy: oracle transport failures,
// cancellation, and a *formatter.ConfigurationError. Exhausted and fatal-parse
// runs return an Outcome whose Err is non-nil.
func (c *Controller) Run(ctx context.Context, brief generator.Brief) (*Outcome, error) {
	sess := newSession(c.maxAttempts)
	log := c.logger.With(zap.String("session", sess.ID))

	ctx, span := tracer.Start(ctx, "Controller.Run", trace.WithAttributes(
		attribute.String("retry.session", sess.ID),
		attribute.Int("retry.max_attempts", sess.MaxAttempts),
	))
	defer span.End()

	for {
		if err := ctx.Err(); err != nil {
			return nil, c.abort(span, fmt.Errorf("retry: attempt %d: %w", sess.Attempt, err))
		}

		log.Info("generating", zap.Int("attempt", sess.Attempt), zap.Int("max_attempts", sess.MaxAttempts))
		parsed, err := c.oracle.Generate(ctx, brief, sess.exchanges())
		if err != nil {
			return nil, c.abort(span, fmt.Errorf("retry: attempt %d: %w", sess.Attempt, err))
		}

		if !parsed.OK() {
			sess.appendTurn(Turn{Reply: parsed.Raw, Problem: parsed.Problem})
			recordAttempt(ctx, "schema-mismatch")
			log.Warn("oracle output rejected", zap.Int("attempt", sess.Attempt), zap.String("problem", parsed.Problem))
			if sess.lastAttempt() {
				sess.State = StateFatalParse
				return c.finish(ctx, span, sess, &Outcome{Problem: parsed.Problem}), nil
			}
			sess.advance(feedback.SchemaMismatch(parsed.Problem, sess.Attempt, sess.MaxAttempts))
			continue
		}

		rendered, err := formatter.Render(*parsed.Spec)
		if err != nil {
			return nil, c.abort(span, err)
		}

		sess.State = StateValidating
		log.Debug("validating", zap.Int("attempt", sess.Attempt), zap.Strings("scenes", parsed.Spec.SceneIDs()))
		results := c.dispatcher.ValidateAll(ctx, rendered)
		if err := ctx.Err(); err != nil {
			return nil, c.abort(span, fmt.Errorf("retry: attempt %d: %w", sess.Attempt, err))
		}
		sess.appendTurn(Turn{Reply: parsed.Raw, Results: results})

		if validation.AllPassed(results) {
			recordAttempt(ctx, "passed")
			sess.State = StateSuccess
			return c.finish(ctx, span, sess, &Outcome{Spec: parsed.Spec, Rendered: rendered, Results: results}), nil
		}

		recordAttempt(ctx, "failed")
		failed := validation.Failed(results)
		log.Info("validation failed",
			zap.Int("attempt", sess.Attempt),
			zap.Int("failed", len(failed)),
			zap.Int("units", len(results)),
		)
		if sess.lastAttempt() {
			sess.State = StateExhausted
			return c.finish(ctx, span, sess, &Outcome{Spec: parsed.Spec, Rendered: rendered, Results: results}), nil
		}

		msg := feedback.SynthesizeWith(c.parser, failed, sess.Attempt, sess.MaxAttempts)
		msg += c.documentation(ctx, log, failed)
		sess.advance(msg)
	}
}

func (c *Controller) finish(ctx context.Context, span trace.Span, sess *Session, out *Outcome) *Outcome {
	out.Status = sess.State
	out.Attempts = sess.Attempt
	out.Session = sess

	span.SetAttributes(
		attribute.String("retry.state", sess.State.String()),
		attribute.Int("retry.attempts", sess.Attempt),
	)
	if sess.State != StateSuccess {
		span.SetStatus(codes.Error, sess.State.String())
	}
	recordRun(ctx, sess.State, sess.Attempt)

	c.logger.Info("run finished",
		zap.String("session", sess.ID),
		zap.Stringer("state", sess.State),
		zap.Int("attempts", sess.Attempt),
	)
	return out
}

func (c *Controller) abort(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// documentation looks up the unresolved symbols of this attempt and formats
// what was found. Lookup failures are skipped.
func (c *Controller) documentation(ctx context.Context, log *zap.Logger, failed []validation.Result) string {
	if c.lookup == nil {
		return ""
	}

	var symbols []string
	seen := make(map[string]bool)
	for _, res := range failed {
		for _, r := range c.parser.Parse(res.Diagnostic) {
			if r.Kind != diagnostics.KindUndefinedName && r.Kind != diagnostics.KindMissingAttribute {
				continue
			}
			if r.Symbol == "" || seen[r.Symbol] {
				continue
			}
			seen[r.Symbol] = true
			symbols = append(symbols, r.Symbol)
		}
	}
	if len(symbols) > maxLookups {
		symbols = symbols[:maxLookups]
	}

	var sb strings.Builder
	for _, sym := range symbols {
		doc, err := c.lookup.Lookup(ctx, sym)
		if err != nil {
			log.Warn("documentation lookup failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString("\n### Documentation lookups\n\n")
		}
		fmt.Fprintf(&sb, "#### %s\n```json\n%s\n```\n\n", sym, strings.TrimRight(doc, "\n"))
	}
	return sb.String()
}

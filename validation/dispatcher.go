package validation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number of concurrent toolchain invocations.
const DefaultWorkers = 4

// Validator validates one unit. *UnitValidator implements it.
type Validator interface {
	Validate(ctx context.Context, source, entity, filename string) Result
}

// Dispatcher fans units out to a Validator over a bounded pool and waits for
// all of them.
type Dispatcher struct {
	validator Validator
	workers   int
	ext       string
	logger    *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers bounds concurrent validations. Values below 1 are ignored.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithFileExtension sets the logical filename suffix for each unit.
func WithFileExtension(ext string) DispatcherOption {
	return func(d *Dispatcher) {
		if ext != "" {
			d.ext = ext
		}
	}
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDispatcher(v Validator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		validator: v,
		workers:   DefaultWorkers,
		ext:       DefaultExtension,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ValidateAll validates every unit (unit id -> source) and returns once all
// of them have finished. Each unit yields exactly one Result. Units with no
// recognisable scene class fail immediately without taking a worker.
//
// The returned slice is sorted by unit id for readable logs; callers should
// still key on UnitID.
func (d *Dispatcher) ValidateAll(ctx context.Context, units map[string]string) []Result {
	start := time.Now()
	recordBatch(ctx, len(units))

	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(units))
	)
	collect := func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	// A plain Group: workers never return errors, so one unit can't cancel another.
	var g errgroup.Group
	g.SetLimit(d.workers)

	for _, id := range ids {
		source := units[id]
		filename := id + d.ext

		entity, err := ExtractEntityName(source)
		if err != nil {
			collect(structuralFailure(id, UnknownEntity, source, filename))
			continue
		}

		g.Go(func() error {
			res := d.validator.Validate(ctx, source, entity, filename)
			// The unit id is owned by the dispatcher, not derived by the validator.
			res.UnitID = id
			collect(res)
			return nil
		})
	}
	_ = g.Wait()

	sortByUnit(results)

	d.logger.Info("validation barrier reached",
		zap.Int("units", len(results)),
		zap.Int("failed", len(Failed(results))),
		zap.Int("workers", d.workers),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

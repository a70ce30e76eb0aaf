// Coordinator
// Runs one producer/consumer round against a single shared buffer:
// spawn producers and consumers, join producers, push one sentinel per consumer, join consumers.

package monitorbuf

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fukaraca/monitorbuf/internal/logging"
)

// ErrInvalidConfig is wrapped by every RunConfig validation error.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Source produces the value sequence each producer pushes.
// Generate must be deterministic: every producer receives the same full sequence.
type Source[V any] interface {
	Generate(count int) iter.Seq[V]
}

// SourceFunc adapts a function to Source.
type SourceFunc[V any] func(count int) iter.Seq[V]

func (f SourceFunc[V]) Generate(count int) iter.Seq[V] {
	return f(count)
}

// RunConfig holds the sizes of one run.
type RunConfig struct {
	ItemsPerProducer int
	Producers        int
	Consumers        int
}

func (c RunConfig) validate() error {
	if c.ItemsPerProducer < 0 {
		return fmt.Errorf("%w: ItemsPerProducer cannot be negative, but got %d", ErrInvalidConfig, c.ItemsPerProducer)
	}
	if c.Producers < 0 {
		return fmt.Errorf("%w: Producers cannot be negative, but got %d", ErrInvalidConfig, c.Producers)
	}
	if c.Consumers < 1 {
		return fmt.Errorf("%w: Consumers must be at least 1, but got %d", ErrInvalidConfig, c.Consumers)
	}
	return nil
}

// Report is the outcome of a run.
type Report struct {
	RunID     string
	Pushed    int
	Processed int
	Failures  int
	Consumers []ConsumerReport
	Elapsed   time.Duration
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	logger  logr.Logger
	metrics *Metrics
}

func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records every run into m. The caller registers m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

type Coordinator[V any] struct {
	source  Source[V]
	sink    Sink[V]
	logger  logr.Logger
	metrics *Metrics

	// bufferCreated observes the buffer of each run before any worker starts.
	// test-only
	bufferCreated func(*Buffer[V])
}

func NewCoordinator[V any](source Source[V], sink Sink[V], opts ...Option) (*Coordinator[V], error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source cannot be nil", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: sink cannot be nil", ErrInvalidConfig)
	}
	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator[V]{
		source:  source,
		sink:    sink,
		logger:  o.logger.WithName("coordinator"),
		metrics: o.metrics,
	}, nil
}

// Run executes one round and blocks until every worker has ended.
//
// Sentinels are pushed only after every producer has ended, so no consumer can stop while
// producer items are still on their way. A panicking producer does not skip that step:
// the sentinels still go out and the consumers are still joined before Run returns an
// error wrapping ErrWorkerPanic.
func (c *Coordinator[V]) Run(cfg RunConfig) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := c.logger.WithValues("run", runID)
	start := time.Now()

	var bufOpts []BufferOption
	if c.metrics != nil {
		bufOpts = append(bufOpts, WithDepthGauge(c.metrics.queueDepth))
	}
	buf := NewBuffer[V](bufOpts...)
	if c.bufferCreated != nil {
		c.bufferCreated(buf)
	}

	onPanic := func(perr *WorkerPanicError) {
		logger.Error(perr, "Worker panicked", "role", perr.Role, "id", perr.ID, "stack", string(perr.Stack))
		if c.metrics != nil {
			c.metrics.recordPanic(perr.Role)
		}
	}

	logger.V(logging.DEFAULT).Info("Starting run",
		"itemsPerProducer", cfg.ItemsPerProducer, "producers", cfg.Producers, "consumers", cfg.Consumers)

	producers := newGroup(onPanic)
	for i := range cfg.Producers {
		p := &Producer[V]{
			ID:      i + 1,
			Values:  c.source.Generate(cfg.ItemsPerProducer),
			logger:  logger,
			metrics: c.metrics,
		}
		producers.Go(RoleProducer, p.ID, func() {
			p.Run(buf)
		})
	}

	reports := make([]ConsumerReport, cfg.Consumers)
	consumers := newGroup(onPanic)
	for i := range cfg.Consumers {
		cons := &Consumer[V]{
			ID:      i + 1,
			Sink:    c.sink,
			logger:  logger,
			metrics: c.metrics,
		}
		reports[i] = ConsumerReport{ID: cons.ID}
		consumers.Go(RoleConsumer, cons.ID, func() {
			cons.consume(buf, &reports[i])
		})
	}

	producerErr := producers.Wait()
	logger.V(logging.DEFAULT).Info("All producers finished", "pushed", buf.Stats().Pushed)

	buf.PushSentinels(cfg.Consumers)
	if c.metrics != nil {
		c.metrics.recordSentinels(cfg.Consumers)
	}

	consumerErr := consumers.Wait()

	report := &Report{
		RunID:     runID,
		Pushed:    buf.Stats().Pushed,
		Consumers: reports,
		Elapsed:   time.Since(start),
	}
	for _, r := range reports {
		report.Processed += r.Processed
		report.Failures += r.Failures
	}

	if err := multierr.Combine(producerErr, consumerErr); err != nil {
		return report, fmt.Errorf("run %s: %w", runID, err)
	}
	logger.V(logging.DEFAULT).Info("All producers and consumers finished",
		"pushed", report.Pushed, "processed", report.Processed, "failures", report.Failures, "elapsed", report.Elapsed)
	return report, nil
}

// Package reclaim provides the deferred reclaimer: a single periodic worker
// that destroys retired objects only after a safety interval has elapsed.
package reclaim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/framecore/metric"
)

// Config controls the reclaimer timing
type Config struct {
	// CyclePeriod is the period of one worker cycle
	CyclePeriod time.Duration `json:"cycle_period" yaml:"cycle_period" toml:"cycle_period"`
	// SafetyInterval is the minimum time between retirement and destruction
	SafetyInterval time.Duration `json:"safety_interval" yaml:"safety_interval" toml:"safety_interval"`
}

// DefaultConfig returns a one second cycle with a five second safety interval
func DefaultConfig() Config {
	return Config{
		CyclePeriod:    time.Second,
		SafetyInterval: 5 * time.Second,
	}
}

// Validate checks that both durations are positive
func (c Config) Validate() error {
	if c.CyclePeriod <= 0 || c.SafetyInterval <= 0 {
		return fmt.Errorf("%w: period %v, interval %v", ErrInvalidConfig, c.CyclePeriod, c.SafetyInterval)
	}
	return nil
}

// SafetyCycles returns ceil(SafetyInterval/CyclePeriod)+1
func (c Config) SafetyCycles() uint64 {
	return uint64(math.Ceil(float64(c.SafetyInterval)/float64(c.CyclePeriod))) + 1
}

type state int32

const (
	stateIdle state = iota
	stateRunning
	stateDraining
	stateStopped
)

type entry struct {
	object  any
	destroy func()
	due     uint64
}

type regularTask struct {
	name string
	fn   func()
}

// Stats holds reclaimer statistics
type Stats struct {
	Cycle     uint64 `json:"cycle"`
	Pending   int    `json:"pending"`
	Retired   int64  `json:"retired"`
	Destroyed int64  `json:"destroyed"`
	Immediate int64  `json:"immediate"`
}

// Metrics holds Prometheus metrics for reclaimer monitoring
type Metrics struct {
	pending   prometheus.Gauge
	retired   prometheus.Counter
	destroyed prometheus.Counter
	cycles    prometheus.Counter
}

// Option configures a Reclaimer
type Option func(*Reclaimer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reclaimer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithManualCycles disables the background ticker. Cycles only advance
// through Step, which lets tests drive a simulated clock.
func WithManualCycles() Option {
	return func(r *Reclaimer) {
		r.manual = true
	}
}

// WithMetricsRegistry registers reclaimer metrics with the framework registry
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(r *Reclaimer) {
		r.metricsRegistry = registry
	}
}

// Reclaimer defers destruction of retired objects by a safety interval.
//
// Before Start and after Stop, Retire destroys immediately: before Start no
// other goroutine of the runtime exists yet, and after Stop the only caller
// is the shutdown path itself.
type Reclaimer struct {
	cfg          Config
	safetyCycles uint64
	logger       *slog.Logger
	manual       bool

	mu    sync.Mutex
	queue []entry
	tasks []*regularTask

	cycle atomic.Uint64
	state atomic.Int32

	// stepMu serializes cycles between the worker and manual Step calls
	stepMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}

	retired   atomic.Int64
	destroyed atomic.Int64
	immediate atomic.Int64

	metricsRegistry *metric.MetricsRegistry
	metrics         *Metrics
}

// New creates a reclaimer. It does not start the worker.
func New(cfg Config, opts ...Option) (*Reclaimer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Reclaimer{
		cfg:          cfg,
		safetyCycles: cfg.SafetyCycles(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reclaimer")

	if r.metricsRegistry != nil {
		r.initializeMetrics()
	}
	return r, nil
}

func (r *Reclaimer) initializeMetrics() {
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "framecore",
		Subsystem: "reclaimer",
		Name:      "pending",
		Help:      "Retired objects waiting for destruction",
	})
	retired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framecore",
		Subsystem: "reclaimer",
		Name:      "retired_total",
		Help:      "Total objects retired",
	})
	destroyed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framecore",
		Subsystem: "reclaimer",
		Name:      "destroyed_total",
		Help:      "Total objects destroyed",
	})
	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framecore",
		Subsystem: "reclaimer",
		Name:      "cycles_total",
		Help:      "Total reclaimer cycles",
	})

	const serviceName = "reclaimer"
	for name, err := range map[string]error{
		"pending":         r.metricsRegistry.RegisterGauge(serviceName, "pending", pending),
		"retired_total":   r.metricsRegistry.RegisterCounter(serviceName, "retired_total", retired),
		"destroyed_total": r.metricsRegistry.RegisterCounter(serviceName, "destroyed_total", destroyed),
		"cycles_total":    r.metricsRegistry.RegisterCounter(serviceName, "cycles_total", cycles),
	} {
		if err != nil {
			r.logger.Warn("Failed to register reclaimer metric", "metric", name, "error", err)
		}
	}

	r.metrics = &Metrics{
		pending:   pending,
		retired:   retired,
		destroyed: destroyed,
		cycles:    cycles,
	}
}

// Config returns the timing configuration
func (r *Reclaimer) Config() Config {
	return r.cfg
}

// SafetyCycles returns the number of cycles an entry waits before destruction
func (r *Reclaimer) SafetyCycles() uint64 {
	return r.safetyCycles
}

// Cycle returns the current cycle counter
func (r *Reclaimer) Cycle() uint64 {
	return r.cycle.Load()
}

// Running reports whether retirements are currently deferred
func (r *Reclaimer) Running() bool {
	return state(r.state.Load()) == stateRunning
}

// Start starts the worker. With WithManualCycles no goroutine is spawned and
// cycles advance only through Step.
func (r *Reclaimer) Start(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(stateIdle), int32(stateRunning)) {
		if state(r.state.Load()) == stateRunning {
			return ErrAlreadyStarted
		}
		return ErrStopped
	}

	if r.manual {
		r.logger.Debug("Reclaimer started in manual mode", "safety_cycles", r.safetyCycles)
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(workerCtx)

	r.logger.Info("Reclaimer started",
		"cycle_period", r.cfg.CyclePeriod,
		"safety_interval", r.cfg.SafetyInterval,
		"safety_cycles", r.safetyCycles)
	return nil
}

func (r *Reclaimer) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.CyclePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Step()
		}
	}
}

// Retire schedules destroy to run once the safety interval has elapsed.
// object is kept reachable until then.
func (r *Reclaimer) Retire(object any, destroy func()) {
	if destroy == nil {
		return
	}

	r.mu.Lock()
	if state(r.state.Load()) != stateRunning {
		r.mu.Unlock()
		r.immediate.Add(1)
		r.execute(entry{object: object, destroy: destroy})
		return
	}
	r.queue = append(r.queue, entry{
		object:  object,
		destroy: destroy,
		due:     r.cycle.Load() + r.safetyCycles,
	})
	pending := len(r.queue)
	r.mu.Unlock()

	r.retired.Add(1)
	if r.metrics != nil {
		r.metrics.retired.Inc()
		r.metrics.pending.Set(float64(pending))
	}
}

// AddRegularTask registers fn to run once per cycle after due entries have
// been destroyed. The returned function removes the task again.
func (r *Reclaimer) AddRegularTask(name string, fn func()) (remove func()) {
	task := &regularTask{name: name, fn: fn}

	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, t := range r.tasks {
			if t == task {
				r.tasks = append(r.tasks[:i:i], r.tasks[i+1:]...)
				return
			}
		}
	}
}

// Step runs one cycle: destroy all due entries, run regular tasks, then
// advance the cycle counter.
func (r *Reclaimer) Step() {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()

	current := r.cycle.Load()

	r.mu.Lock()
	n := 0
	for n < len(r.queue) && r.queue[n].due <= current {
		n++
	}
	due := make([]entry, n)
	copy(due, r.queue[:n])
	r.queue = r.queue[n:]
	pending := len(r.queue)
	tasks := make([]*regularTask, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.Unlock()

	for _, e := range due {
		r.execute(e)
	}
	for _, t := range tasks {
		r.runTask(t)
	}

	r.cycle.Add(1)
	if r.metrics != nil {
		r.metrics.pending.Set(float64(pending))
		r.metrics.cycles.Inc()
	}
}

func (r *Reclaimer) execute(e entry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Destroy function panicked", "object", fmt.Sprintf("%T", e.object), "panic", rec)
		}
	}()
	e.destroy()
	r.destroyed.Add(1)
	if r.metrics != nil {
		r.metrics.destroyed.Inc()
	}
}

func (r *Reclaimer) runTask(t *regularTask) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Regular task panicked", "task", t.name, "panic", rec)
		}
	}()
	t.fn()
}

// Stop terminates the worker and destroys every queued entry synchronously.
// No entry is dropped. Retirements after Stop are destroyed immediately.
func (r *Reclaimer) Stop(timeout time.Duration) error {
	if !r.state.CompareAndSwap(int32(stateRunning), int32(stateDraining)) {
		r.state.CompareAndSwap(int32(stateIdle), int32(stateStopped))
		return nil
	}

	var stopErr error
	if r.cancel != nil {
		r.cancel()
		timer := time.NewTimer(timeout)
		select {
		case <-r.done:
		case <-timer.C:
			stopErr = ErrStopTimeout
		}
		timer.Stop()
	}

	r.stepMu.Lock()
	drained := r.drain()
	r.stepMu.Unlock()

	r.state.Store(int32(stateStopped))
	r.logger.Info("Reclaimer stopped", "drained", drained, "cycle", r.cycle.Load())
	return stopErr
}

// drain executes the queue until it is empty. Destroy functions that retire
// further objects during the drain see a non-running state and run inline.
func (r *Reclaimer) drain() int {
	total := 0
	for {
		r.mu.Lock()
		queue := r.queue
		r.queue = nil
		r.mu.Unlock()

		if len(queue) == 0 {
			if r.metrics != nil {
				r.metrics.pending.Set(0)
			}
			return total
		}
		for _, e := range queue {
			r.execute(e)
		}
		total += len(queue)
	}
}

// Stats returns current reclaimer statistics
func (r *Reclaimer) Stats() Stats {
	r.mu.Lock()
	pending := len(r.queue)
	r.mu.Unlock()

	return Stats{
		Cycle:     r.cycle.Load(),
		Pending:   pending,
		Retired:   r.retired.Load(),
		Destroyed: r.destroyed.Load(),
		Immediate: r.immediate.Load(),
	}
}

package structevents

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/metric"
	"github.com/c360/framecore/port"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured
const DefaultSubjectPrefix = "framecore.events"

// Publisher sends encoded events. *Broker implements it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Config configures an Emitter
type Config struct {
	SubjectPrefix string
	BufferSize    int
	Logger        *slog.Logger
	Metrics       *metric.Metrics
}

// Stats holds emitter counters
type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

// Emitter listens to a runtime and publishes every structural change as an
// Event. Listener callbacks run under the structure lock, so they only
// enqueue; a worker goroutine encodes and publishes. Events are dropped when
// the queue is full.
type Emitter struct {
	rt      *element.Runtime
	pub     Publisher
	prefix  string
	logger  *slog.Logger
	metrics *metric.Metrics

	queue    chan Event
	sequence atomic.Uint64
	dropWarn *rate.Limiter

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates an emitter for rt publishing through pub
func New(rt *element.Runtime, pub Publisher, cfg Config) (*Emitter, error) {
	if rt == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Emitter", "New", "runtime validation")
	}
	if pub == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Emitter", "New", "publisher validation")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Emitter{
		rt:       rt,
		pub:      pub,
		prefix:   cfg.SubjectPrefix,
		logger:   cfg.Logger.With("component", "structevents"),
		metrics:  cfg.Metrics,
		queue:    make(chan Event, cfg.BufferSize),
		dropWarn: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Start registers the emitter with the runtime and starts publishing
func (e *Emitter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Emitter", "Start", "state check")
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.rt.AddListener(e)
	go e.run(ctx, e.stop, e.done)
	e.logger.Debug("Structure event emitter started", "prefix", e.prefix, "runtime", e.rt.ID())
	return nil
}

// Stop unregisters the emitter, publishes the queued events and waits for
// the worker up to timeout
func (e *Emitter) Stop(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	e.rt.RemoveListener(e)
	close(e.stop)

	select {
	case <-e.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "Emitter", "Stop", "draining event queue")
	}
}

// Stats returns the emitter counters
func (e *Emitter) Stats() Stats {
	return Stats{
		Published: e.published.Load(),
		Dropped:   e.dropped.Load(),
		Failed:    e.failed.Load(),
	}
}

// OnElementChange implements element.RuntimeListener
func (e *Emitter) OnElementChange(change element.ChangeType, el *element.Element) {
	e.enqueue(elementEvent(change, el))
}

// OnConnectorChange implements port.ConnectionListener
func (e *Emitter) OnConnectorChange(change element.ChangeType, c *port.Connector) {
	e.enqueue(connectorEvent(change, c))
}

// OnURIConnectorChange implements port.URIConnectorListener
func (e *Emitter) OnURIConnectorChange(change element.ChangeType, u port.URIConnector) {
	e.enqueue(uriConnectorEvent(change, u))
}

func (e *Emitter) enqueue(ev Event) {
	ev.Runtime = e.rt.ID().String()
	ev.Sequence = e.sequence.Add(1)
	select {
	case e.queue <- ev:
	default:
		e.dropped.Add(1)
		if e.dropWarn.Allow() {
			e.logger.Warn("Structure event queue full, dropping events", "dropped", e.dropped.Load())
		}
	}
}

func (e *Emitter) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-e.queue:
			e.publish(ctx, ev)
		case <-stop:
			e.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (e *Emitter) drain(ctx context.Context) {
	for {
		select {
		case ev := <-e.queue:
			e.publish(ctx, ev)
		default:
			return
		}
	}
}

func (e *Emitter) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		e.failed.Add(1)
		e.logger.Error("Failed to marshal structure event", "error", err)
		return
	}
	subject := ev.Subject(e.prefix)
	if err := e.pub.Publish(ctx, subject, data); err != nil {
		e.failed.Add(1)
		e.logger.Debug("Failed to publish structure event", "subject", subject, "error", err)
		return
	}
	e.published.Add(1)
	if e.metrics != nil {
		e.metrics.RecordEventPublished(string(ev.Kind))
	}
}

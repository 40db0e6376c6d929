package structevents

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/metric"
	"github.com/c360/framecore/pkg/retry"
)

// ConnectionStatus represents the state of the broker connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned when publishing without a live connection
var ErrNotConnected = stderrors.New("not connected to NATS")

// BrokerConfig configures the NATS connection events are published over
type BrokerConfig struct {
	URL           string
	ClientName    string
	Token         string
	MaxReconnects int // -1 for infinite
	ReconnectWait time.Duration
	PingInterval  time.Duration
	Timeout       time.Duration
	DrainTimeout  time.Duration
	Retry         retry.Config // attempts for the initial connect
	TLS           *tls.Config  // nil for plain connections
}

// DefaultBrokerConfig returns the connection defaults for url
func DefaultBrokerConfig(url string) BrokerConfig {
	return BrokerConfig{
		URL:           url,
		ClientName:    "framecore",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		PingInterval:  30 * time.Second,
		Timeout:       5 * time.Second,
		DrainTimeout:  10 * time.Second,
		Retry:         retry.Startup(),
	}
}

// Broker manages the NATS connection used by the event emitter. It
// implements Publisher.
type Broker struct {
	cfg     BrokerConfig
	logger  *slog.Logger
	metrics *metric.Metrics
	status  atomic.Int32

	mu     sync.RWMutex
	conn   *nats.Conn
	closed atomic.Bool
}

// NewBroker creates a broker. metrics may be nil.
func NewBroker(cfg BrokerConfig, logger *slog.Logger, metrics *metric.Metrics) (*Broker, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Broker", "NewBroker", "URL validation")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		cfg:     cfg,
		logger:  logger.With("component", "broker", "url", cfg.URL),
		metrics: metrics,
	}, nil
}

// Status returns the current connection status
func (b *Broker) Status() ConnectionStatus {
	return ConnectionStatus(b.status.Load())
}

// IsHealthy returns true if the connection is up
func (b *Broker) IsHealthy() bool {
	return b.Status() == StatusConnected
}

func (b *Broker) setStatus(s ConnectionStatus) {
	b.status.Store(int32(s))
	if b.metrics != nil {
		b.metrics.RecordBrokerStatus(s == StatusConnected)
	}
}

func (b *Broker) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.PingInterval(b.cfg.PingInterval),
		nats.Timeout(b.cfg.Timeout),
		nats.DrainTimeout(b.cfg.DrainTimeout),
		nats.DisconnectErrHandler(b.handleDisconnect),
		nats.ReconnectHandler(b.handleReconnect),
		nats.ClosedHandler(b.handleClosed),
	}
	if b.cfg.ClientName != "" {
		opts = append(opts, nats.Name(b.cfg.ClientName))
	}
	if b.cfg.Token != "" {
		opts = append(opts, nats.Token(b.cfg.Token))
	}
	if b.cfg.TLS != nil {
		opts = append(opts, nats.Secure(b.cfg.TLS))
	}
	return opts
}

// Connect establishes the connection, retrying with backoff
func (b *Broker) Connect(ctx context.Context) error {
	if b.closed.Load() {
		return errors.WrapInvalid(errors.ErrShuttingDown, "Broker", "Connect", "closed check")
	}
	b.setStatus(StatusConnecting)
	b.logger.Info("Connecting to NATS")

	conn, err := retry.DoWithResult(ctx, b.cfg.Retry, func() (*nats.Conn, error) {
		conn, err := nats.Connect(b.cfg.URL, b.connectionOptions()...)
		if err != nil {
			b.logger.Debug("NATS connect attempt failed", "error", err)
		}
		return conn, err
	})
	if err != nil {
		b.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Broker", "Connect", "establish connection")
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.setStatus(StatusConnected)
	b.logger.Info("Connected to NATS")
	return nil
}

// Publish publishes data on subject
func (b *Broker) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// Close drains and closes the connection
func (b *Broker) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn == nil {
		b.setStatus(StatusDisconnected)
		return nil
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- conn.Drain()
	}()

	var drainErr error
	select {
	case err := <-drainDone:
		if err != nil {
			drainErr = errors.Wrap(err, "Broker", "Close", "drain connection")
		}
	case <-time.After(b.cfg.DrainTimeout):
		drainErr = errors.WrapTransient(fmt.Errorf("drain timeout after %v", b.cfg.DrainTimeout),
			"Broker", "Close", "drain timeout")
	case <-ctx.Done():
		drainErr = errors.Wrap(ctx.Err(), "Broker", "Close", "context cancelled during drain")
	}
	if drainErr != nil {
		b.logger.Error("Draining NATS connection failed, force closing", "error", drainErr)
	}

	conn.Close()
	b.setStatus(StatusDisconnected)
	return drainErr
}

func (b *Broker) handleDisconnect(_ *nats.Conn, err error) {
	if b.closed.Load() {
		return
	}
	b.setStatus(StatusReconnecting)
	b.logger.Warn("NATS connection lost", "error", err)
}

func (b *Broker) handleReconnect(_ *nats.Conn) {
	b.setStatus(StatusConnected)
	b.logger.Info("NATS connection restored")
}

func (b *Broker) handleClosed(_ *nats.Conn) {
	b.setStatus(StatusDisconnected)
}

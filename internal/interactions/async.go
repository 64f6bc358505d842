// Package interactions records generation and chat exchanges to an append-only sink.
package interactions

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"example.com/fitplan/internal/domain"
	"example.com/fitplan/internal/observability"
)

// ErrQueueFull is returned by AsyncLog.Append when the record was dropped.
var ErrQueueFull = errors.New("interaction queue full")

// Sink persists interaction records.
type Sink interface {
	Append(ctx context.Context, record domain.InteractionRecord) error
}

// DefaultQueueSize bounds the number of records waiting for the sink.
const DefaultQueueSize = 256

const (
	defaultWriteTimeout = 5 * time.Second
	defaultDrainTimeout = 10 * time.Second
)

// AsyncLog hands records to a worker goroutine so callers never wait on the
// sink. A full queue drops the record and counts it.
type AsyncLog struct {
	sink         Sink
	queue        chan domain.InteractionRecord
	logger       *zap.Logger
	writeTimeout time.Duration
	drainTimeout time.Duration
	done         chan struct{}
}

// AsyncOption customizes an AsyncLog.
type AsyncOption func(*AsyncLog)

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) AsyncOption {
	return func(a *AsyncLog) {
		if n > 0 {
			a.queue = make(chan domain.InteractionRecord, n)
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *zap.Logger) AsyncOption {
	return func(a *AsyncLog) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithWriteTimeout bounds each sink write.
func WithWriteTimeout(d time.Duration) AsyncOption {
	return func(a *AsyncLog) {
		if d > 0 {
			a.writeTimeout = d
		}
	}
}

// NewAsyncLog wraps sink. Start must be called before records are written.
func NewAsyncLog(sink Sink, opts ...AsyncOption) *AsyncLog {
	a := &AsyncLog{
		sink:         sink,
		queue:        make(chan domain.InteractionRecord, DefaultQueueSize),
		logger:       zap.NewNop(),
		writeTimeout: defaultWriteTimeout,
		drainTimeout: defaultDrainTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Append enqueues a record without blocking.
func (a *AsyncLog) Append(_ context.Context, record domain.InteractionRecord) error {
	select {
	case a.queue <- record:
		return nil
	default:
		observability.RecordInteractionDropped()
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is cancelled, then drains what is queued.
// It should be called in a goroutine.
func (a *AsyncLog) Start(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case rec := <-a.queue:
			a.write(context.Background(), rec)
		}
	}
}

// Wait blocks until the worker has stopped.
func (a *AsyncLog) Wait() {
	<-a.done
}

func (a *AsyncLog) drain() {
	deadline := time.Now().Add(a.drainTimeout)
	for time.Now().Before(deadline) {
		select {
		case rec := <-a.queue:
			a.write(context.Background(), rec)
		default:
			return
		}
	}
}

func (a *AsyncLog) write(parent context.Context, rec domain.InteractionRecord) {
	ctx, cancel := context.WithTimeout(parent, a.writeTimeout)
	defer cancel()
	err := a.sink.Append(ctx, rec)
	observability.RecordInteractionWrite(err)
	if err != nil {
		a.logger.Warn("interaction sink write failed",
			zap.String("user_id", rec.UserID),
			zap.String("message_type", rec.Category),
			zap.Error(err),
		)
	}
}

// Package dispatch relays Operations to a single-consumer worker that
// owns long-lived engine state. The worker processes submissions in
// order through a bounded mailbox; a full mailbox or a closed worker is
// reported explicitly instead of blocking, and a caller that stops
// waiting observes a canceled error rather than a hang.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bmertz/webgrant/pkg/debug"
	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/observability"
	"github.com/bmertz/webgrant/pkg/operation"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// Sentinel errors reported by Submit. Both carry the mailbox kind so
// callers can map them with the usual status policy while still telling
// them apart with errors.Is.
var (
	// ErrMailboxFull reports a worker whose mailbox has no room.
	ErrMailboxFull = weberr.New(weberr.KindMailbox, "worker mailbox is full")

	// ErrClosed reports a worker that is no longer accepting work.
	ErrClosed = weberr.New(weberr.KindMailbox, "worker is closed")
)

// Reply is the single response produced for one submission.
type Reply struct {
	Result *operation.Result
	Err    error
}

// submission pairs an enveloped operation with its reply channel.
type submission struct {
	env   operation.Envelope
	reply chan Reply
}

// Worker runs Operations against an exclusively-owned engine, one at a
// time, in submission order. Create with NewWorker, begin processing
// with Start, and stop with Close.
type Worker struct {
	eng     endpoint.Endpoint
	mailbox chan submission
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewWorker creates a worker around eng with a mailbox holding up to
// mailboxSize queued operations. The worker does not process anything
// until Start is called.
func NewWorker(eng endpoint.Endpoint, mailboxSize int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		eng:     eng,
		mailbox: make(chan submission, mailboxSize),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine. The worker stops when ctx is
// done or Close is called, whichever comes first.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Close stops the worker. Queued submissions that were not yet picked
// up receive ErrClosed; the operation in flight (if any) completes and
// its caller receives the real reply. Close is idempotent.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.drain()
}

// Submit relays op to the worker and waits for its single reply. It
// never blocks on a full mailbox: submission fails fast with
// ErrMailboxFull. A done context while waiting yields a canceled error;
// the operation itself still runs to completion on the worker.
func (w *Worker) Submit(ctx context.Context, op operation.Operation) (*operation.Result, error) {
	replyCh, err := w.SubmitAsync(ctx, op)
	if err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply.Result, reply.Err
	case <-ctx.Done():
		observability.ErrorsTotal.WithLabelValues(string(weberr.KindCanceled)).Inc()
		return nil, weberr.Wrap(weberr.KindCanceled, "canceled waiting for worker reply", ctx.Err())
	}
}

// SubmitAsync enqueues op and returns the channel its reply will arrive
// on. Exactly one Reply is delivered per accepted submission.
func (w *Worker) SubmitAsync(ctx context.Context, op operation.Operation) (<-chan Reply, error) {
	select {
	case <-w.done:
		observability.MailboxRejectedTotal.WithLabelValues("closed").Inc()
		return nil, ErrClosed
	default:
	}

	sub := submission{env: operation.Wrap(op), reply: make(chan Reply, 1)}

	select {
	case w.mailbox <- sub:
		observability.MailboxDepth.Inc()
		return sub.reply, nil
	default:
		observability.MailboxRejectedTotal.WithLabelValues("full").Inc()
		return nil, ErrMailboxFull
	}
}

// run is the single consumer loop.
func (w *Worker) run(ctx context.Context) {
	w.logger.Info("dispatch worker started", "mailbox_size", cap(w.mailbox))
	defer w.logger.Info("dispatch worker stopped")

	for {
		select {
		case <-w.done:
			w.drain()
			return
		case <-ctx.Done():
			w.Close()
			return
		case sub := <-w.mailbox:
			observability.MailboxDepth.Dec()
			sub.reply <- w.process(ctx, sub.env)
		}
	}
}

// process runs one enveloped operation, recording metrics and shielding
// the consumer loop from panics.
func (w *Worker) process(ctx context.Context, env operation.Envelope) (reply Reply) {
	op := env.Unwrap()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("operation panicked", "operation", op.Name(), "panic", r)
			reply = Reply{Err: weberr.New(weberr.KindEndpoint, "operation panicked")}
		}

		status := "success"
		if reply.Err != nil {
			status = "error"
			observability.ErrorsTotal.WithLabelValues(string(weberr.KindOf(reply.Err))).Inc()
		}
		observability.OperationsTotal.WithLabelValues(op.Name(), status).Inc()
		observability.OperationDuration.WithLabelValues(op.Name()).Observe(time.Since(start).Seconds())
		debug.Log("dispatch", "operation processed",
			"operation", op.Name(), "status", status, "duration", time.Since(start))
	}()

	result, err := op.Run(ctx, w.eng)
	return Reply{Result: result, Err: err}
}

// drain rejects everything left in the mailbox after close.
func (w *Worker) drain() {
	for {
		select {
		case sub := <-w.mailbox:
			observability.MailboxDepth.Dec()
			sub.reply <- Reply{Err: ErrClosed}
		default:
			return
		}
	}
}

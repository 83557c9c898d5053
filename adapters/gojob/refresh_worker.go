package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goident/partneragent/core"
)

const defaultNackDelay = 5 * time.Second

// RefreshExecutor is the slice of the lifecycle service the worker needs.
type RefreshExecutor interface {
	RunRefreshWithRetry(ctx context.Context, partnerID string, opts core.RefreshRunOptions) (core.RefreshRunResult, error)
}

// RefreshWorker drains refresh jobs from a queue and executes them against
// the lifecycle service. One worker per process is enough; the service
// serializes refreshes per partner with its own lock.
type RefreshWorker struct {
	Dequeuer core.JobDequeuer
	Executor RefreshExecutor
	Hook     core.JobWorkerHook
	RunOpts  core.RefreshRunOptions
}

func NewRefreshWorker(dequeuer core.JobDequeuer, executor RefreshExecutor) *RefreshWorker {
	return &RefreshWorker{Dequeuer: dequeuer, Executor: executor}
}

// Run consumes deliveries until the context is canceled.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if w == nil || w.Dequeuer == nil || w.Executor == nil {
		return fmt.Errorf("gojob: refresh worker requires a dequeuer and an executor")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.Dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			continue
		}
		w.handle(ctx, delivery)
	}
}

func (w *RefreshWorker) handle(ctx context.Context, delivery core.JobDelivery) {
	if delivery == nil {
		return
	}
	msg := delivery.Message()
	if msg == nil || msg.JobID != core.JobIDPartnerRefresh {
		_ = delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unrecognized job",
		})
		return
	}

	partnerID := parameterString(msg.Parameters, "partner_id")
	if partnerID == "" {
		_ = delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "missing partner_id parameter",
		})
		return
	}

	startedAt := time.Now().UTC()
	w.emit(ctx, func(h core.JobWorkerHook, e core.JobWorkerEvent) { h.OnStart(ctx, e) }, msg, startedAt, nil)

	result, err := w.Executor.RunRefreshWithRetry(ctx, partnerID, w.RunOpts)
	event := core.JobWorkerEvent{
		Message:   msg,
		Attempt:   result.Attempts,
		Err:       err,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	if err != nil {
		if w.Hook != nil {
			w.Hook.OnFailure(ctx, event)
		}
		// The stale flag already queues the partner for the next sweep,
		// so a failed run is acked rather than requeued immediately.
		if result.MarkedStale {
			_ = delivery.Ack(ctx)
			return
		}
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Delay:   defaultNackDelay,
			Requeue: true,
			Reason:  strings.TrimSpace(fmt.Sprint(err)),
		})
		return
	}
	if w.Hook != nil {
		w.Hook.OnSuccess(ctx, event)
	}
	_ = delivery.Ack(ctx)
}

func (w *RefreshWorker) emit(
	ctx context.Context,
	fn func(core.JobWorkerHook, core.JobWorkerEvent),
	msg *core.JobExecutionMessage,
	startedAt time.Time,
	err error,
) {
	if w == nil || w.Hook == nil {
		return
	}
	fn(w.Hook, core.JobWorkerEvent{Message: msg, StartedAt: startedAt, Err: err})
}

func parameterString(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

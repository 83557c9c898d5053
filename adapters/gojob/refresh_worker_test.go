package gojob

import (
	"context"
	"errors"
	"testing"

	"github.com/goident/partneragent/core"
)

func TestRefreshWorkerAcksSuccessfulRun(t *testing.T) {
	executor := &stubRefreshExecutor{result: core.RefreshRunResult{Attempts: 1}}
	delivery := newStubAgentDelivery("partner_1")
	worker := NewRefreshWorker(nil, executor)

	worker.handle(context.Background(), delivery)

	if executor.lastPartnerID != "partner_1" {
		t.Fatalf("expected executor to receive partner id, got %q", executor.lastPartnerID)
	}
	if !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}
	if delivery.nacked {
		t.Fatalf("did not expect a nack")
	}
}

func TestRefreshWorkerAcksWhenPartnerMarkedStale(t *testing.T) {
	executor := &stubRefreshExecutor{
		result: core.RefreshRunResult{Attempts: 3, MarkedStale: true},
		err:    errors.New("lookup failed"),
	}
	delivery := newStubAgentDelivery("partner_1")
	worker := NewRefreshWorker(nil, executor)

	worker.handle(context.Background(), delivery)

	if !delivery.acked {
		t.Fatalf("expected a stale-marked partner to ack; the sweep requeues it")
	}
	if delivery.nacked {
		t.Fatalf("did not expect a nack")
	}
}

func TestRefreshWorkerRequeuesTransientFailure(t *testing.T) {
	executor := &stubRefreshExecutor{
		result: core.RefreshRunResult{Attempts: 1},
		err:    errors.New("store unavailable"),
	}
	delivery := newStubAgentDelivery("partner_1")
	worker := NewRefreshWorker(nil, executor)

	worker.handle(context.Background(), delivery)

	if delivery.acked {
		t.Fatalf("did not expect an ack")
	}
	if !delivery.nacked || !delivery.nackOpts.Requeue {
		t.Fatalf("expected the delivery to be requeued")
	}
	if delivery.nackOpts.Delay != defaultNackDelay {
		t.Fatalf("expected default nack delay, got %s", delivery.nackOpts.Delay)
	}
}

func TestRefreshWorkerDeadLettersUnrecognizedJob(t *testing.T) {
	executor := &stubRefreshExecutor{}
	delivery := &stubAgentDelivery{
		msg: &core.JobExecutionMessage{JobID: "unknown-job"},
	}
	worker := NewRefreshWorker(nil, executor)

	worker.handle(context.Background(), delivery)

	if executor.calls != 0 {
		t.Fatalf("expected executor to be skipped")
	}
	if !delivery.nacked || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected an unrecognized job to dead letter")
	}
}

func TestRefreshWorkerDeadLettersMissingPartnerID(t *testing.T) {
	executor := &stubRefreshExecutor{}
	delivery := &stubAgentDelivery{
		msg: &core.JobExecutionMessage{
			JobID:      core.JobIDPartnerRefresh,
			Parameters: map[string]any{"partner_id": "   "},
		},
	}
	worker := NewRefreshWorker(nil, executor)

	worker.handle(context.Background(), delivery)

	if executor.calls != 0 {
		t.Fatalf("expected executor to be skipped")
	}
	if !delivery.nacked || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected a missing partner id to dead letter")
	}
}

func TestRefreshWorkerEmitsHooks(t *testing.T) {
	executor := &stubRefreshExecutor{result: core.RefreshRunResult{Attempts: 2}}
	delivery := newStubAgentDelivery("partner_1")
	hook := &recordingWorkerHook{}
	worker := NewRefreshWorker(nil, executor)
	worker.Hook = hook

	worker.handle(context.Background(), delivery)

	if !hook.started || !hook.succeeded {
		t.Fatalf("expected start and success hooks, got start=%v success=%v", hook.started, hook.succeeded)
	}
	if hook.failed {
		t.Fatalf("did not expect a failure hook")
	}
	if hook.lastSuccess.Attempt != 2 {
		t.Fatalf("expected attempt count on success event, got %d", hook.lastSuccess.Attempt)
	}
}

type stubRefreshExecutor struct {
	result        core.RefreshRunResult
	err           error
	calls         int
	lastPartnerID string
}

func (s *stubRefreshExecutor) RunRefreshWithRetry(_ context.Context, partnerID string, _ core.RefreshRunOptions) (core.RefreshRunResult, error) {
	s.calls++
	s.lastPartnerID = partnerID
	return s.result, s.err
}

type stubAgentDelivery struct {
	msg      *core.JobExecutionMessage
	acked    bool
	nacked   bool
	nackOpts core.JobNackOptions
}

func newStubAgentDelivery(partnerID string) *stubAgentDelivery {
	return &stubAgentDelivery{
		msg: &core.JobExecutionMessage{
			JobID:      core.JobIDPartnerRefresh,
			Parameters: map[string]any{"partner_id": partnerID},
		},
	}
}

func (s *stubAgentDelivery) Message() *core.JobExecutionMessage {
	return s.msg
}

func (s *stubAgentDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubAgentDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type recordingWorkerHook struct {
	started     bool
	succeeded   bool
	failed      bool
	lastSuccess core.JobWorkerEvent
}

func (h *recordingWorkerHook) OnStart(context.Context, core.JobWorkerEvent) { h.started = true }
func (h *recordingWorkerHook) OnSuccess(_ context.Context, event core.JobWorkerEvent) {
	h.succeeded = true
	h.lastSuccess = event
}
func (h *recordingWorkerHook) OnFailure(context.Context, core.JobWorkerEvent) { h.failed = true }
func (h *recordingWorkerHook) OnRetry(context.Context, core.JobWorkerEvent)   {}

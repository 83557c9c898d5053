package inbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goident/partneragent/core"
)

const (
	TrackCredential = "credential"
	TrackProof      = "proof"
)

// EventDelivery is one protocol event as received from a partner's agent.
// The exchange id is the only correlation the wire format carries; the
// delivery id exists purely for transport-level dedupe.
type EventDelivery struct {
	DeliveryID string
	Track      string
	ExchangeID string
	Event      core.ExchangeEvent
	Headers    map[string]string
	Metadata   map[string]any
}

type Result struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

// Verifier authenticates an inbound delivery before it touches any state.
type Verifier interface {
	Verify(ctx context.Context, delivery EventDelivery) error
}

// IdempotencyClaimStore guards against duplicate deliveries. Claim returns
// accepted=false for a key that is complete or still being processed; Fail
// releases the claim so a redelivery can retry.
type IdempotencyClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (claimID string, accepted bool, err error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

type IdempotencyKeyExtractor func(delivery EventDelivery) (string, error)

// Dispatcher authenticates, dedupes, and serializes inbound protocol event
// deliveries before handing them to the exchange coordinator. Deliveries
// for the same exchange are applied one at a time so events observe each
// other's transitions.
type Dispatcher struct {
	Verifier    Verifier
	Store       IdempotencyClaimStore
	Coordinator core.ExchangeCoordinator
	ExtractKey  IdempotencyKeyExtractor
	KeyTTL      time.Duration

	mu        sync.Mutex
	exchanges map[string]*sync.Mutex
}

func NewDispatcher(verifier Verifier, store IdempotencyClaimStore, coordinator core.ExchangeCoordinator) *Dispatcher {
	return &Dispatcher{
		Verifier:    verifier,
		Store:       store,
		Coordinator: coordinator,
		ExtractKey:  DefaultIdempotencyKeyExtractor,
		KeyTTL:      10 * time.Minute,
		exchanges:   map[string]*sync.Mutex{},
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, delivery EventDelivery) (Result, error) {
	if d == nil {
		return Result{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	if d.Coordinator == nil {
		return Result{}, inboundInternal("inbound: exchange coordinator is required", nil)
	}
	delivery.Track = normalizeTrack(delivery.Track)
	delivery.ExchangeID = strings.TrimSpace(delivery.ExchangeID)
	if delivery.ExchangeID == "" {
		return Result{}, inboundBadInput("inbound: exchange id is required", map[string]any{
			"track": delivery.Track,
		})
	}
	if !isSupportedTrack(delivery.Track) {
		return Result{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported track %q", delivery.Track),
			map[string]any{"exchange_id": delivery.ExchangeID, "track": delivery.Track},
		)
	}
	if d.Verifier != nil {
		if err := d.Verifier.Verify(ctx, delivery); err != nil {
			return Result{
					Accepted:   false,
					StatusCode: http.StatusUnauthorized,
					Metadata: map[string]any{
						"exchange_id": delivery.ExchangeID,
						"track":       delivery.Track,
						"rejected":    true,
					},
				}, inboundWrapError(
					err,
					goerrors.CategoryAuth,
					"inbound: delivery verification failed",
					http.StatusUnauthorized,
					core.AgentErrorBadInput,
					map[string]any{"exchange_id": delivery.ExchangeID, "track": delivery.Track},
				)
		}
	}

	claimID := ""
	if d.Store != nil {
		extractor := d.ExtractKey
		if extractor == nil {
			extractor = DefaultIdempotencyKeyExtractor
		}
		key, err := extractor(delivery)
		if err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryBadInput,
				"inbound: resolve idempotency key",
				http.StatusBadRequest,
				core.AgentErrorBadInput,
				map[string]any{"exchange_id": delivery.ExchangeID, "track": delivery.Track},
			)
		}
		var accepted bool
		claimID, accepted, err = d.Store.Claim(ctx, delivery.Track+":"+delivery.ExchangeID+":"+key, d.keyTTL())
		if err != nil {
			return Result{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: idempotency claim failed",
				http.StatusInternalServerError,
				core.AgentErrorInternal,
				map[string]any{
					"exchange_id": delivery.ExchangeID,
					"track":       delivery.Track,
					"idempotency": key,
				},
			)
		}
		if !accepted {
			return Result{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata: map[string]any{
					"exchange_id": delivery.ExchangeID,
					"track":       delivery.Track,
					"deduped":     true,
				},
			}, nil
		}
	}

	unlock := d.lockExchange(delivery.ExchangeID)
	err := d.apply(ctx, delivery)
	unlock()
	if err != nil {
		handlerErr := inboundWrapError(
			err,
			goerrors.CategoryOperation,
			"inbound: event application failed",
			http.StatusBadGateway,
			core.AgentErrorInternal,
			map[string]any{"exchange_id": delivery.ExchangeID, "track": delivery.Track},
		)
		if d.Store != nil && claimID != "" {
			if failErr := d.Store.Fail(ctx, claimID, err, time.Time{}); failErr != nil {
				return Result{}, errors.Join(handlerErr, inboundWrapError(
					failErr,
					goerrors.CategoryOperation,
					"inbound: mark idempotency claim failed",
					http.StatusInternalServerError,
					core.AgentErrorInternal,
					map[string]any{"exchange_id": delivery.ExchangeID, "claim_id": claimID},
				))
			}
		}
		return Result{}, handlerErr
	}

	if d.Store != nil && claimID != "" {
		if completeErr := d.Store.Complete(ctx, claimID); completeErr != nil {
			return Result{}, inboundWrapError(
				completeErr,
				goerrors.CategoryOperation,
				"inbound: complete idempotency claim",
				http.StatusInternalServerError,
				core.AgentErrorInternal,
				map[string]any{"exchange_id": delivery.ExchangeID, "claim_id": claimID},
			)
		}
	}
	return Result{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"exchange_id": delivery.ExchangeID,
			"track":       delivery.Track,
		},
	}, nil
}

func (d *Dispatcher) apply(ctx context.Context, delivery EventDelivery) error {
	switch delivery.Track {
	case TrackCredential:
		return d.Coordinator.OnCredentialEvent(ctx, delivery.ExchangeID, delivery.Event)
	case TrackProof:
		return d.Coordinator.OnProofEvent(ctx, delivery.ExchangeID, delivery.Event)
	default:
		return inboundBadInput(fmt.Sprintf("inbound: unsupported track %q", delivery.Track), nil)
	}
}

// lockExchange returns the unlock for the per-exchange mutex, creating it
// on first use. Entries are never evicted; exchange ids are bounded by the
// number of live exchanges.
func (d *Dispatcher) lockExchange(exchangeID string) func() {
	d.mu.Lock()
	if d.exchanges == nil {
		d.exchanges = map[string]*sync.Mutex{}
	}
	lock, ok := d.exchanges[exchangeID]
	if !ok {
		lock = &sync.Mutex{}
		d.exchanges[exchangeID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func DefaultIdempotencyKeyExtractor(delivery EventDelivery) (string, error) {
	if value := strings.TrimSpace(delivery.DeliveryID); value != "" {
		return value, nil
	}
	if delivery.Metadata != nil {
		if value := trimAny(delivery.Metadata["delivery_id"]); value != "" {
			return value, nil
		}
		if value := trimAny(delivery.Metadata["message_id"]); value != "" {
			return value, nil
		}
	}
	if delivery.Headers != nil {
		if value := headerValue(delivery.Headers, "idempotency-key"); value != "" {
			return value, nil
		}
		if value := headerValue(delivery.Headers, "x-message-id"); value != "" {
			return value, nil
		}
	}
	return "", inboundBadInput("inbound: idempotency key is required", map[string]any{
		"exchange_id": delivery.ExchangeID,
		"track":       delivery.Track,
	})
}

func (d *Dispatcher) keyTTL() time.Duration {
	if d != nil && d.KeyTTL > 0 {
		return d.KeyTTL
	}
	return 10 * time.Minute
}

func normalizeTrack(track string) string {
	return strings.TrimSpace(strings.ToLower(track))
}

func isSupportedTrack(track string) bool {
	switch normalizeTrack(track) {
	case TrackCredential, TrackProof:
		return true
	default:
		return false
	}
}

func trimAny(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

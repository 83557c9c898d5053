package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CoordinatorDependencies carries the collaborators the exchange
// coordinator needs. PartnerStore, ExchangeStore and Gateway are required;
// the rest default to no-op implementations.
type CoordinatorDependencies struct {
	PartnerStore    PartnerStore
	ExchangeStore   ExchangeStore
	Gateway         MessagingGateway
	Locker          PartnerLocker
	Logger          Logger
	MetricsRecorder MetricsRecorder
	DispatchTimeout time.Duration
	Now             func() time.Time
}

// Coordinator drives credential-request and proof-request exchanges against
// a partner's agent. The synchronous Send* methods create the exchange
// record and dispatch the initiating message; the On* methods apply protocol
// events delivered later, correlated purely by exchange id.
type Coordinator struct {
	partnerStore    PartnerStore
	exchangeStore   ExchangeStore
	gateway         MessagingGateway
	locker          PartnerLocker
	logger          Logger
	metricsRecorder MetricsRecorder
	dispatchTimeout time.Duration
	now             func() time.Time
}

var _ ExchangeCoordinator = (*Coordinator)(nil)

func NewCoordinator(deps CoordinatorDependencies) *Coordinator {
	coordinator := &Coordinator{
		partnerStore:    deps.PartnerStore,
		exchangeStore:   deps.ExchangeStore,
		gateway:         deps.Gateway,
		locker:          deps.Locker,
		logger:          deps.Logger,
		metricsRecorder: deps.MetricsRecorder,
		dispatchTimeout: deps.DispatchTimeout,
		now:             deps.Now,
	}
	if coordinator.locker == nil {
		coordinator.locker = NewMemoryPartnerLocker()
	}
	if coordinator.metricsRecorder == nil {
		coordinator.metricsRecorder = NopMetricsRecorder{}
	}
	if coordinator.now == nil {
		coordinator.now = func() time.Time { return time.Now().UTC() }
	}
	return coordinator
}

// SendCredentialRequest opens a credential exchange for the given document
// and dispatches the request to the partner's agent. At most one
// non-terminal exchange may exist per (partner, document); a second request
// is rejected with a conflict carrying the blocking exchange id. A dispatch
// failure leaves the exchange behind in the failed state.
func (c *Coordinator) SendCredentialRequest(ctx context.Context, partnerID string, documentID string) (CredentialExchange, error) {
	partnerID = strings.TrimSpace(partnerID)
	documentID = strings.TrimSpace(documentID)
	if partnerID == "" || documentID == "" {
		return CredentialExchange{}, fmt.Errorf("core: partner id and document id are required")
	}

	unlock, err := c.lockPartner(ctx, partnerID)
	if err != nil {
		return CredentialExchange{}, err
	}
	defer unlock()

	partner, err := c.requirePartner(ctx, partnerID)
	if err != nil {
		return CredentialExchange{}, err
	}

	if existing, found, findErr := c.exchangeStore.FindActiveCredentialExchange(ctx, partnerID, documentID); findErr != nil {
		return CredentialExchange{}, findErr
	} else if found {
		return CredentialExchange{}, ConflictError(partnerID, documentID, existing.ID)
	}

	exchange, err := c.exchangeStore.CreateCredentialExchange(ctx, CreateCredentialExchangeInput{
		PartnerID:  partnerID,
		DocumentID: documentID,
		State:      CredentialExchangeStateRequested,
	})
	if err != nil {
		return CredentialExchange{}, err
	}

	dispatchErr := c.dispatch(ctx, partnerID, ProtocolMessage{
		ExchangeID: exchange.ID,
		Kind:       ProtocolMessageKindCredentialRequest,
		PartnerDID: partner.DID,
		Endpoint:   partner.Profile.Endpoint,
		DocumentID: documentID,
	})
	if dispatchErr != nil {
		return CredentialExchange{}, c.failCredentialExchange(ctx, exchange, dispatchErr)
	}

	c.logEvent(ctx, "credential request dispatched", map[string]any{
		"partner_id":  partnerID,
		"document_id": documentID,
		"exchange_id": exchange.ID,
	})
	return exchange, nil
}

// OnCredentialEvent applies one protocol event to a credential exchange.
// Protocol anomalies, an unknown exchange id, an event the current state
// cannot accept, or a kind outside the credential track, are logged and
// swallowed so a misbehaving partner agent cannot poison the caller.
// Storage failures are returned so the delivery layer can retry.
func (c *Coordinator) OnCredentialEvent(ctx context.Context, exchangeID string, event ExchangeEvent) error {
	exchangeID = strings.TrimSpace(exchangeID)
	if exchangeID == "" {
		c.logAnomaly(ctx, "credential event without exchange id", map[string]any{"kind": string(event.Kind)})
		return nil
	}

	exchange, err := c.exchangeStore.GetCredentialExchange(ctx, exchangeID)
	if err != nil {
		if IsTextCode(err, AgentErrorExchangeNotFound) {
			c.logAnomaly(ctx, "credential event for unknown exchange", map[string]any{
				"exchange_id": exchangeID,
				"kind":        string(event.Kind),
			})
			return nil
		}
		return err
	}
	if exchange.ID == "" {
		c.logAnomaly(ctx, "credential event for unknown exchange", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
		})
		return nil
	}

	unlock, err := c.lockPartner(ctx, exchange.PartnerID)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock; another event may have advanced the exchange.
	exchange, err = c.exchangeStore.GetCredentialExchange(ctx, exchangeID)
	if err != nil {
		return err
	}

	next, reason, ok := credentialStateForEvent(event)
	if !ok {
		c.logAnomaly(ctx, "credential event with unsupported kind", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
		})
		return nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now()
	}
	if transitionErr := exchange.TransitionTo(next, reason, occurredAt); transitionErr != nil {
		c.logAnomaly(ctx, "credential event rejected by state machine", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
			"state":       string(exchange.State),
			"error":       transitionErr.Error(),
		})
		return nil
	}
	if event.Kind == EventCredentialOffer && strings.TrimSpace(event.CredentialDefinitionID) != "" {
		exchange.CredentialDefinitionID = strings.TrimSpace(event.CredentialDefinitionID)
	}

	if _, updateErr := c.exchangeStore.UpdateCredentialExchange(ctx, exchange); updateErr != nil {
		return updateErr
	}
	c.observeEvent(ctx, "credential", event.Kind, exchange.PartnerID, exchangeID)
	return nil
}

// GetPartnerCredDefs lists the credential definitions the partner's stored
// profile advertises. It reads the local record only; call RefreshPartner
// first for a current view.
func (c *Coordinator) GetPartnerCredDefs(ctx context.Context, partnerID string) ([]CredentialType, error) {
	partner, err := c.requirePartner(ctx, strings.TrimSpace(partnerID))
	if err != nil {
		return nil, err
	}
	return partner.Profile.CredentialTypes, nil
}

func (c *Coordinator) ListPartnerCredentialExchanges(ctx context.Context, partnerID string) ([]CredentialExchange, error) {
	partnerID = strings.TrimSpace(partnerID)
	if _, err := c.requirePartner(ctx, partnerID); err != nil {
		return nil, err
	}
	return c.exchangeStore.ListCredentialExchangesByPartner(ctx, partnerID)
}

// SendPresentProofRequest opens a proof exchange asking the partner to
// present a credential of the given definition. Unlike the credential
// track, concurrent proof requests against the same definition are allowed.
func (c *Coordinator) SendPresentProofRequest(ctx context.Context, partnerID string, credentialDefinitionID string) (ProofExchange, error) {
	partnerID = strings.TrimSpace(partnerID)
	credentialDefinitionID = strings.TrimSpace(credentialDefinitionID)
	if partnerID == "" || credentialDefinitionID == "" {
		return ProofExchange{}, fmt.Errorf("core: partner id and credential definition id are required")
	}

	unlock, err := c.lockPartner(ctx, partnerID)
	if err != nil {
		return ProofExchange{}, err
	}
	defer unlock()

	partner, err := c.requirePartner(ctx, partnerID)
	if err != nil {
		return ProofExchange{}, err
	}

	exchange, err := c.exchangeStore.CreateProofExchange(ctx, CreateProofExchangeInput{
		PartnerID:              partnerID,
		CredentialDefinitionID: credentialDefinitionID,
		State:                  ProofExchangeStateRequested,
	})
	if err != nil {
		return ProofExchange{}, err
	}

	dispatchErr := c.dispatch(ctx, partnerID, ProtocolMessage{
		ExchangeID:             exchange.ID,
		Kind:                   ProtocolMessageKindProofRequest,
		PartnerDID:             partner.DID,
		Endpoint:               partner.Profile.Endpoint,
		CredentialDefinitionID: credentialDefinitionID,
	})
	if dispatchErr != nil {
		return ProofExchange{}, c.failProofExchange(ctx, exchange, dispatchErr)
	}

	c.logEvent(ctx, "proof request dispatched", map[string]any{
		"partner_id":  partnerID,
		"cred_def_id": credentialDefinitionID,
		"exchange_id": exchange.ID,
	})
	return exchange, nil
}

// OnProofEvent applies one protocol event to a proof exchange. Anomaly
// handling matches OnCredentialEvent.
func (c *Coordinator) OnProofEvent(ctx context.Context, exchangeID string, event ExchangeEvent) error {
	exchangeID = strings.TrimSpace(exchangeID)
	if exchangeID == "" {
		c.logAnomaly(ctx, "proof event without exchange id", map[string]any{"kind": string(event.Kind)})
		return nil
	}

	exchange, err := c.exchangeStore.GetProofExchange(ctx, exchangeID)
	if err != nil {
		if IsTextCode(err, AgentErrorExchangeNotFound) {
			c.logAnomaly(ctx, "proof event for unknown exchange", map[string]any{
				"exchange_id": exchangeID,
				"kind":        string(event.Kind),
			})
			return nil
		}
		return err
	}
	if exchange.ID == "" {
		c.logAnomaly(ctx, "proof event for unknown exchange", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
		})
		return nil
	}

	unlock, err := c.lockPartner(ctx, exchange.PartnerID)
	if err != nil {
		return err
	}
	defer unlock()

	exchange, err = c.exchangeStore.GetProofExchange(ctx, exchangeID)
	if err != nil {
		return err
	}

	next, reason, ok := proofStateForEvent(event)
	if !ok {
		c.logAnomaly(ctx, "proof event with unsupported kind", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
		})
		return nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now()
	}
	if transitionErr := exchange.TransitionTo(next, reason, occurredAt); transitionErr != nil {
		c.logAnomaly(ctx, "proof event rejected by state machine", map[string]any{
			"exchange_id": exchangeID,
			"kind":        string(event.Kind),
			"state":       string(exchange.State),
			"error":       transitionErr.Error(),
		})
		return nil
	}

	if _, updateErr := c.exchangeStore.UpdateProofExchange(ctx, exchange); updateErr != nil {
		return updateErr
	}
	c.observeEvent(ctx, "proof", event.Kind, exchange.PartnerID, exchangeID)
	return nil
}

func (c *Coordinator) ListPartnerProofs(ctx context.Context, partnerID string) ([]ProofExchange, error) {
	partnerID = strings.TrimSpace(partnerID)
	if _, err := c.requirePartner(ctx, partnerID); err != nil {
		return nil, err
	}
	return c.exchangeStore.ListProofExchangesByPartner(ctx, partnerID)
}

func (c *Coordinator) GetPartnerProofByID(ctx context.Context, proofID string) (ProofExchange, error) {
	proofID = strings.TrimSpace(proofID)
	if proofID == "" {
		return ProofExchange{}, fmt.Errorf("core: proof id is required")
	}
	exchange, err := c.exchangeStore.GetProofExchange(ctx, proofID)
	if err != nil {
		return ProofExchange{}, err
	}
	if exchange.ID == "" {
		return ProofExchange{}, ExchangeNotFoundError(proofID)
	}
	return exchange, nil
}

func credentialStateForEvent(event ExchangeEvent) (CredentialExchangeState, string, bool) {
	switch event.Kind {
	case EventCredentialOffer:
		return CredentialExchangeStateOffered, "", true
	case EventCredentialIssue:
		return CredentialExchangeStateIssued, "", true
	case EventCredentialDecline:
		return CredentialExchangeStateDeclined, declineReason(event.Reason, "declined by partner"), true
	case EventProtocolError:
		return CredentialExchangeStateFailed, declineReason(event.Reason, "protocol error"), true
	default:
		return "", "", false
	}
}

func proofStateForEvent(event ExchangeEvent) (ProofExchangeState, string, bool) {
	switch event.Kind {
	case EventProofPresentation:
		return ProofExchangeStatePresented, "", true
	case EventProofVerified:
		return ProofExchangeStateVerified, "", true
	case EventProofRejected:
		return ProofExchangeStateRejected, declineReason(event.Reason, "rejected by partner"), true
	case EventProtocolError:
		return ProofExchangeStateFailed, declineReason(event.Reason, "protocol error"), true
	default:
		return "", "", false
	}
}

func declineReason(reason, fallback string) string {
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		return trimmed
	}
	return fallback
}

func (c *Coordinator) failCredentialExchange(ctx context.Context, exchange CredentialExchange, cause error) error {
	now := c.now()
	if transitionErr := exchange.TransitionTo(CredentialExchangeStateFailed, cause.Error(), now); transitionErr == nil {
		if _, updateErr := c.exchangeStore.UpdateCredentialExchange(ctx, exchange); updateErr != nil {
			c.logAnomaly(ctx, "failed exchange could not be persisted", map[string]any{
				"exchange_id": exchange.ID,
				"error":       updateErr.Error(),
			})
		}
	}
	return DispatchError(exchange.PartnerID, cause)
}

func (c *Coordinator) failProofExchange(ctx context.Context, exchange ProofExchange, cause error) error {
	now := c.now()
	if transitionErr := exchange.TransitionTo(ProofExchangeStateFailed, cause.Error(), now); transitionErr == nil {
		if _, updateErr := c.exchangeStore.UpdateProofExchange(ctx, exchange); updateErr != nil {
			c.logAnomaly(ctx, "failed exchange could not be persisted", map[string]any{
				"exchange_id": exchange.ID,
				"error":       updateErr.Error(),
			})
		}
	}
	return DispatchError(exchange.PartnerID, cause)
}

func (c *Coordinator) dispatch(ctx context.Context, partnerID string, msg ProtocolMessage) error {
	if c.gateway == nil {
		return fmt.Errorf("core: messaging gateway is required")
	}
	dispatchCtx := ctx
	cancel := func() {}
	if c.dispatchTimeout > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, c.dispatchTimeout)
	}
	defer cancel()
	return c.gateway.Dispatch(dispatchCtx, partnerID, msg)
}

func (c *Coordinator) requirePartner(ctx context.Context, partnerID string) (Partner, error) {
	if c.partnerStore == nil {
		return Partner{}, fmt.Errorf("core: partner store is required")
	}
	if partnerID == "" {
		return Partner{}, fmt.Errorf("core: partner id is required")
	}
	partner, err := c.partnerStore.Get(ctx, partnerID)
	if err != nil {
		return Partner{}, err
	}
	if partner.ID == "" {
		return Partner{}, PartnerNotFoundError(partnerID)
	}
	return partner, nil
}

func (c *Coordinator) lockPartner(ctx context.Context, partnerID string) (func(), error) {
	if c.locker == nil {
		return func() {}, nil
	}
	handle, err := c.locker.Acquire(ctx, partnerID, defaultPartnerLockTTL)
	if err != nil {
		return nil, err
	}
	return func() { _ = handle.Unlock(ctx) }, nil
}

func (c *Coordinator) observeEvent(ctx context.Context, track string, kind ExchangeEventKind, partnerID, exchangeID string) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.IncCounter(ctx, "partneragent.exchange_event.total", 1, map[string]string{
			"track": track,
			"kind":  string(kind),
		})
	}
	c.logEvent(ctx, track+" event applied", map[string]any{
		"partner_id":  partnerID,
		"exchange_id": exchangeID,
		"kind":        string(kind),
	})
}

func (c *Coordinator) logEvent(ctx context.Context, message string, fields map[string]any) {
	c.log(ctx, false, message, fields)
}

func (c *Coordinator) logAnomaly(ctx context.Context, message string, fields map[string]any) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.IncCounter(ctx, "partneragent.exchange_anomaly.total", 1, map[string]string{})
	}
	c.log(ctx, true, message, fields)
}

func (c *Coordinator) log(ctx context.Context, warn bool, message string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	if warn {
		logger.Warn(message, args...)
		return
	}
	logger.Info(message, args...)
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPartnerStateTransition    = errors.New("core: invalid partner state transition")
	ErrInvalidCredentialStateTransition = errors.New("core: invalid credential exchange state transition")
	ErrInvalidProofStateTransition      = errors.New("core: invalid proof exchange state transition")
	ErrInvalidDID                       = errors.New("core: invalid did")
)

type PartnerState string

const (
	PartnerStateLookedUp  PartnerState = "looked_up"
	PartnerStateAdded     PartnerState = "added"
	PartnerStateRefreshed PartnerState = "refreshed"
)

// PartnerProfile is the publicly advertised metadata of a partner, as
// returned by a profile lookup.
type PartnerProfile struct {
	Name            string
	Endpoint        string
	CredentialTypes []CredentialType
}

func (p PartnerProfile) IsZero() bool {
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Endpoint) == "" &&
		len(p.CredentialTypes) == 0
}

// CredentialType is one credential definition a partner advertises it can
// issue.
type CredentialType struct {
	CredentialDefinitionID string
	Name                   string
}

type Partner struct {
	ID              string
	DID             string
	Alias           string
	Profile         PartnerProfile
	State           PartnerState
	NeedsRefresh    bool
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Partner) TransitionTo(state PartnerState, now time.Time) error {
	if p == nil {
		return nil
	}
	if p.State == state {
		p.UpdatedAt = now
		return nil
	}
	if !partnerTransitionAllowed(p.State, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPartnerStateTransition, p.State, state)
	}
	p.State = state
	p.UpdatedAt = now
	return nil
}

func partnerTransitionAllowed(current, next PartnerState) bool {
	allowed := map[PartnerState]map[PartnerState]struct{}{
		PartnerStateLookedUp: {
			PartnerStateAdded: {},
		},
		PartnerStateAdded: {
			PartnerStateRefreshed: {},
		},
		PartnerStateRefreshed: {
			PartnerStateAdded: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

func ValidateDID(did string) error {
	trimmed := strings.TrimSpace(did)
	if trimmed == "" {
		return fmt.Errorf("%w: empty did", ErrInvalidDID)
	}
	if !strings.HasPrefix(trimmed, "did:") {
		return fmt.Errorf("%w: %q", ErrInvalidDID, did)
	}
	return nil
}

type CredentialExchangeState string

const (
	CredentialExchangeStateRequested CredentialExchangeState = "requested"
	CredentialExchangeStateOffered   CredentialExchangeState = "offered"
	CredentialExchangeStateIssued    CredentialExchangeState = "issued"
	CredentialExchangeStateDeclined  CredentialExchangeState = "declined"
	CredentialExchangeStateFailed    CredentialExchangeState = "failed"
)

// Terminal reports whether the exchange can no longer advance; only
// non-terminal exchanges count against the one-active-per-document rule.
func (s CredentialExchangeState) Terminal() bool {
	switch s {
	case CredentialExchangeStateIssued, CredentialExchangeStateDeclined, CredentialExchangeStateFailed:
		return true
	default:
		return false
	}
}

type CredentialExchange struct {
	ID                     string
	PartnerID              string
	DocumentID             string
	CredentialDefinitionID string
	State                  CredentialExchangeState
	LastError              string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (e *CredentialExchange) TransitionTo(state CredentialExchangeState, reason string, now time.Time) error {
	if e == nil {
		return nil
	}
	if e.State == state {
		e.UpdatedAt = now
		return nil
	}
	if !credentialExchangeTransitionAllowed(e.State, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCredentialStateTransition, e.State, state)
	}
	e.State = state
	e.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		e.LastError = strings.TrimSpace(reason)
	}
	return nil
}

func credentialExchangeTransitionAllowed(current, next CredentialExchangeState) bool {
	allowed := map[CredentialExchangeState]map[CredentialExchangeState]struct{}{
		CredentialExchangeStateRequested: {
			CredentialExchangeStateOffered: {},
			CredentialExchangeStateFailed:  {},
		},
		CredentialExchangeStateOffered: {
			CredentialExchangeStateIssued:   {},
			CredentialExchangeStateDeclined: {},
			CredentialExchangeStateFailed:   {},
		},
		CredentialExchangeStateIssued:   {},
		CredentialExchangeStateDeclined: {},
		CredentialExchangeStateFailed:   {},
	}
	_, ok := allowed[current][next]
	return ok
}

type ProofExchangeState string

const (
	ProofExchangeStateRequested ProofExchangeState = "requested"
	ProofExchangeStatePresented ProofExchangeState = "presented"
	ProofExchangeStateVerified  ProofExchangeState = "verified"
	ProofExchangeStateRejected  ProofExchangeState = "rejected"
	ProofExchangeStateFailed    ProofExchangeState = "failed"
)

func (s ProofExchangeState) Terminal() bool {
	switch s {
	case ProofExchangeStateVerified, ProofExchangeStateRejected, ProofExchangeStateFailed:
		return true
	default:
		return false
	}
}

type ProofExchange struct {
	ID                     string
	PartnerID              string
	CredentialDefinitionID string
	State                  ProofExchangeState
	LastError              string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (e *ProofExchange) TransitionTo(state ProofExchangeState, reason string, now time.Time) error {
	if e == nil {
		return nil
	}
	if e.State == state {
		e.UpdatedAt = now
		return nil
	}
	if !proofExchangeTransitionAllowed(e.State, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidProofStateTransition, e.State, state)
	}
	e.State = state
	e.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		e.LastError = strings.TrimSpace(reason)
	}
	return nil
}

func proofExchangeTransitionAllowed(current, next ProofExchangeState) bool {
	allowed := map[ProofExchangeState]map[ProofExchangeState]struct{}{
		ProofExchangeStateRequested: {
			ProofExchangeStatePresented: {},
			ProofExchangeStateFailed:    {},
		},
		ProofExchangeStatePresented: {
			ProofExchangeStateVerified: {},
			ProofExchangeStateRejected: {},
			ProofExchangeStateFailed:   {},
		},
		ProofExchangeStateVerified: {},
		ProofExchangeStateRejected: {},
		ProofExchangeStateFailed:   {},
	}
	_, ok := allowed[current][next]
	return ok
}

// ExchangeEventKind names a protocol event delivered by the messaging
// layer. The same kind space serves both tracks; each track accepts its own
// subset.
type ExchangeEventKind string

const (
	EventCredentialOffer   ExchangeEventKind = "credential.offer"
	EventCredentialIssue   ExchangeEventKind = "credential.issue"
	EventCredentialDecline ExchangeEventKind = "credential.decline"
	EventProofPresentation ExchangeEventKind = "proof.presentation"
	EventProofVerified     ExchangeEventKind = "proof.verified"
	EventProofRejected     ExchangeEventKind = "proof.rejected"
	EventProtocolError     ExchangeEventKind = "protocol.error"
)

// ExchangeEvent is the asynchronous feedback half of an exchange. The
// exchange id is the sole correlation key carried by the external protocol.
type ExchangeEvent struct {
	Kind                   ExchangeEventKind
	CredentialDefinitionID string
	Reason                 string
	OccurredAt             time.Time
	Payload                map[string]any
}

package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// PartnerStore is durable keyed storage of partner records. All operations
// are atomic with respect to a single record; Create and Update fail with a
// duplicate-did error when the did is already owned by a different id.
type PartnerStore interface {
	Create(ctx context.Context, in CreatePartnerInput) (Partner, error)
	Get(ctx context.Context, id string) (Partner, error)
	GetByDID(ctx context.Context, did string) (Partner, error)
	Update(ctx context.Context, partner Partner) (Partner, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Partner, error)
	ListNeedingRefresh(ctx context.Context, limit int) ([]Partner, error)
}

type CreatePartnerInput struct {
	DID          string
	Alias        string
	Profile      PartnerProfile
	State        PartnerState
	NeedsRefresh bool
}

// ExchangeStore keeps credential and proof exchange records. FindActive
// backs the one-active-exchange-per-(partner, document) invariant and must
// see its own writes when called under the coordinator's per-partner lock.
type ExchangeStore interface {
	CreateCredentialExchange(ctx context.Context, in CreateCredentialExchangeInput) (CredentialExchange, error)
	GetCredentialExchange(ctx context.Context, id string) (CredentialExchange, error)
	UpdateCredentialExchange(ctx context.Context, exchange CredentialExchange) (CredentialExchange, error)
	ListCredentialExchangesByPartner(ctx context.Context, partnerID string) ([]CredentialExchange, error)
	FindActiveCredentialExchange(ctx context.Context, partnerID string, documentID string) (CredentialExchange, bool, error)

	CreateProofExchange(ctx context.Context, in CreateProofExchangeInput) (ProofExchange, error)
	GetProofExchange(ctx context.Context, id string) (ProofExchange, error)
	UpdateProofExchange(ctx context.Context, exchange ProofExchange) (ProofExchange, error)
	ListProofExchangesByPartner(ctx context.Context, partnerID string) ([]ProofExchange, error)
}

type CreateCredentialExchangeInput struct {
	PartnerID  string
	DocumentID string
	State      CredentialExchangeState
}

type CreateProofExchangeInput struct {
	PartnerID              string
	CredentialDefinitionID string
	State                  ProofExchangeState
}

// ProfileLookupClient resolves a partner's public profile document from its
// did. Implementations carry a bounded timeout, are idempotent, and safe to
// retry.
type ProfileLookupClient interface {
	FetchProfile(ctx context.Context, did string) (PartnerProfile, error)
}

// ProtocolMessage is the initiating half of an exchange, dispatched to the
// partner's agent through the messaging gateway. The exchange id travels
// with the message and comes back on every protocol event.
type ProtocolMessage struct {
	ExchangeID             string
	Kind                   string
	PartnerDID             string
	Endpoint               string
	DocumentID             string
	CredentialDefinitionID string
	Body                   map[string]any
}

const (
	ProtocolMessageKindCredentialRequest = "credential-request"
	ProtocolMessageKindProofRequest      = "present-proof-request"
)

// MessagingGateway carries protocol messages to a partner's agent.
type MessagingGateway interface {
	Dispatch(ctx context.Context, partnerID string, msg ProtocolMessage) error
}

// ExchangeCoordinator drives the credential-request and proof-request
// protocol tracks. The Send* half is synchronous and caller-facing; the On*
// half is invoked by the messaging layer as protocol events arrive and
// absorbs anomalies instead of raising.
type ExchangeCoordinator interface {
	SendCredentialRequest(ctx context.Context, partnerID string, documentID string) (CredentialExchange, error)
	OnCredentialEvent(ctx context.Context, exchangeID string, event ExchangeEvent) error
	GetPartnerCredDefs(ctx context.Context, partnerID string) ([]CredentialType, error)
	ListPartnerCredentialExchanges(ctx context.Context, partnerID string) ([]CredentialExchange, error)

	SendPresentProofRequest(ctx context.Context, partnerID string, credentialDefinitionID string) (ProofExchange, error)
	OnProofEvent(ctx context.Context, exchangeID string, event ExchangeEvent) error
	ListPartnerProofs(ctx context.Context, partnerID string) ([]ProofExchange, error)
	GetPartnerProofByID(ctx context.Context, proofID string) (ProofExchange, error)
}

// LockHandle releases a held partner lock.
type LockHandle interface {
	Unlock(ctx context.Context) error
}

// PartnerLocker serializes state-changing operations on a single partner
// id. Locks are lease-based so a crashed holder cannot wedge the partner
// forever.
type PartnerLocker interface {
	Acquire(ctx context.Context, partnerID string, ttl time.Duration) (LockHandle, error)
}

type StoreProvider interface {
	PartnerStore() PartnerStore
	ExchangeStore() ExchangeStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

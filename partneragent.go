package partneragent

import "github.com/goident/partneragent/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type Partner = core.Partner
type PartnerProfile = core.PartnerProfile
type CredentialType = core.CredentialType
type CredentialExchange = core.CredentialExchange
type ProofExchange = core.ProofExchange
type ExchangeEvent = core.ExchangeEvent
type ExchangeCoordinator = core.ExchangeCoordinator
type PartnerStore = core.PartnerStore
type ExchangeStore = core.ExchangeStore
type ProfileLookupClient = core.ProfileLookupClient
type MessagingGateway = core.MessagingGateway
type PartnerLocker = core.PartnerLocker
type RefreshRunOptions = core.RefreshRunOptions
type RefreshRunResult = core.RefreshRunResult

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithPartnerLocker       = core.WithPartnerLocker
	WithPartnerStore        = core.WithPartnerStore
	WithExchangeStore       = core.WithExchangeStore
	WithProfileLookupClient = core.WithProfileLookupClient
	WithMessagingGateway    = core.WithMessagingGateway
	WithRefreshEnqueuer     = core.WithRefreshEnqueuer
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

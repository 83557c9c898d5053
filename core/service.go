package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the partner relationship lifecycle. It is the sole writer of
// partner records; exchange records belong to the ExchangeCoordinator it
// carries.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	partnerLocker     PartnerLocker
	partnerStore      PartnerStore
	exchangeStore     ExchangeStore
	lookupClient      ProfileLookupClient
	gateway           MessagingGateway
	coordinator       ExchangeCoordinator
	refreshEnqueuer   JobEnqueuer
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PartnerLocker     PartnerLocker
	PartnerStore      PartnerStore
	ExchangeStore     ExchangeStore
	LookupClient      ProfileLookupClient
	Gateway           MessagingGateway
	Coordinator       ExchangeCoordinator
	RefreshEnqueuer   JobEnqueuer
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("partneragent", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("partneragent"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.partnerLocker == nil {
		builder.partnerLocker = NewMemoryPartnerLocker()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.partnerStore == nil || builder.exchangeStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.partnerStore == nil {
					builder.partnerStore = storeProvider.PartnerStore()
				}
				if builder.exchangeStore == nil {
					builder.exchangeStore = storeProvider.ExchangeStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.partnerStore == nil {
				builder.partnerStore = storeProvider.PartnerStore()
			}
			if builder.exchangeStore == nil {
				builder.exchangeStore = storeProvider.ExchangeStore()
			}
		}
	}

	if builder.coordinator == nil {
		if finalConfig.Exchange.Enabled && builder.exchangeStore != nil && builder.gateway != nil {
			builder.coordinator = NewCoordinator(CoordinatorDependencies{
				PartnerStore:    builder.partnerStore,
				ExchangeStore:   builder.exchangeStore,
				Gateway:         builder.gateway,
				Locker:          builder.partnerLocker,
				Logger:          logger,
				MetricsRecorder: builder.metricsRecorder,
				DispatchTimeout: finalConfig.Exchange.DispatchTimeout,
			})
		} else {
			builder.coordinator = NullCoordinator{}
		}
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		partnerLocker:     builder.partnerLocker,
		partnerStore:      builder.partnerStore,
		exchangeStore:     builder.exchangeStore,
		lookupClient:      builder.lookupClient,
		gateway:           builder.gateway,
		coordinator:       builder.coordinator,
		refreshEnqueuer:   builder.refreshEnqueuer,
		now:               func() time.Time { return time.Now().UTC() },
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Exchange exposes the configured coordinator; a NullCoordinator when no
// exchange backend was wired at startup.
func (s *Service) Exchange() ExchangeCoordinator {
	if s == nil || s.coordinator == nil {
		return NullCoordinator{}
	}
	return s.coordinator
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PartnerLocker:     s.partnerLocker,
		PartnerStore:      s.partnerStore,
		ExchangeStore:     s.exchangeStore,
		LookupClient:      s.lookupClient,
		Gateway:           s.gateway,
		Coordinator:       s.coordinator,
		RefreshEnqueuer:   s.refreshEnqueuer,
	}
}

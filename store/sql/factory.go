package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goident/partneragent/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	partnerStore  *PartnerStore
	exchangeStore *ExchangeStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.partnerStore != nil && f.exchangeStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) PartnerStore() core.PartnerStore {
	if f == nil {
		return nil
	}
	return f.partnerStore
}

func (f *RepositoryFactory) ExchangeStore() core.ExchangeStore {
	if f == nil {
		return nil
	}
	return f.exchangeStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	partnerRepo := repository.NewRepository[*partnerRecord](f.db, partnerHandlers())
	if validator, ok := partnerRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid partner repository wiring: %w", err)
		}
	}

	credentialRepo := repository.NewRepository[*credentialExchangeRecord](f.db, credentialExchangeHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential exchange repository wiring: %w", err)
		}
	}

	proofRepo := repository.NewRepository[*proofExchangeRecord](f.db, proofExchangeHandlers())
	if validator, ok := proofRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid proof exchange repository wiring: %w", err)
		}
	}

	f.partnerStore = &PartnerStore{
		db:   f.db,
		repo: partnerRepo,
	}
	f.exchangeStore = &ExchangeStore{
		db:             f.db,
		credentialRepo: credentialRepo,
		proofRepo:      proofRepo,
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
var _ core.StoreProvider = (*RepositoryFactory)(nil)

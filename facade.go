package partneragent

import (
	"fmt"

	agentcommand "github.com/goident/partneragent/command"
	"github.com/goident/partneragent/core"
	agentquery "github.com/goident/partneragent/query"
)

// LifecycleService is the surface the facade dispatches partner commands
// and queries against. *core.Service satisfies it.
type LifecycleService interface {
	agentcommand.MutatingService
	agentquery.PartnerReader
}

type Commands struct {
	AddPartner           *agentcommand.AddPartnerCommand
	RemovePartner        *agentcommand.RemovePartnerCommand
	RefreshPartner       *agentcommand.RefreshPartnerCommand
	RefreshStalePartners *agentcommand.RefreshStalePartnersCommand
	RequestCredential    *agentcommand.RequestCredentialCommand
	RequestProof         *agentcommand.RequestProofCommand
}

type Queries struct {
	LookupPartner           *agentquery.LookupPartnerQuery
	GetPartner              *agentquery.GetPartnerQuery
	ListPartners            *agentquery.ListPartnersQuery
	PartnerCredDefs         *agentquery.PartnerCredDefsQuery
	ListCredentialExchanges *agentquery.ListCredentialExchangesQuery
	ListProofExchanges      *agentquery.ListProofExchangesQuery
	GetProofExchange        *agentquery.GetProofExchangeQuery
}

type Facade struct {
	service  LifecycleService
	exchange core.ExchangeCoordinator
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	exchange core.ExchangeCoordinator
}

// WithExchangeCoordinator overrides the coordinator resolved from the
// service, useful when exchanges run in a separate process.
func WithExchangeCoordinator(coordinator core.ExchangeCoordinator) FacadeOption {
	return func(options *facadeOptions) {
		options.exchange = coordinator
	}
}

func NewFacade(service LifecycleService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("partneragent: lifecycle service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	exchange := cfg.exchange
	if exchange == nil {
		exchange = resolveExchangeCoordinator(service)
	}

	facade := &Facade{service: service, exchange: exchange}
	facade.commands = Commands{
		AddPartner:           agentcommand.NewAddPartnerCommand(service),
		RemovePartner:        agentcommand.NewRemovePartnerCommand(service),
		RefreshPartner:       agentcommand.NewRefreshPartnerCommand(service),
		RefreshStalePartners: agentcommand.NewRefreshStalePartnersCommand(service),
		RequestCredential:    agentcommand.NewRequestCredentialCommand(exchange),
		RequestProof:         agentcommand.NewRequestProofCommand(exchange),
	}
	facade.queries = Queries{
		LookupPartner:           agentquery.NewLookupPartnerQuery(service),
		GetPartner:              agentquery.NewGetPartnerQuery(service),
		ListPartners:            agentquery.NewListPartnersQuery(service),
		PartnerCredDefs:         agentquery.NewPartnerCredDefsQuery(exchange),
		ListCredentialExchanges: agentquery.NewListCredentialExchangesQuery(exchange),
		ListProofExchanges:      agentquery.NewListProofExchangesQuery(exchange),
		GetProofExchange:        agentquery.NewGetProofExchangeQuery(exchange),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() LifecycleService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Exchange() core.ExchangeCoordinator {
	if f == nil || f.exchange == nil {
		return core.NullCoordinator{}
	}
	return f.exchange
}

func resolveExchangeCoordinator(service LifecycleService) core.ExchangeCoordinator {
	if coordinator, ok := service.(core.ExchangeCoordinator); ok {
		return coordinator
	}
	provider, ok := service.(interface {
		Exchange() core.ExchangeCoordinator
	})
	if !ok {
		return core.NullCoordinator{}
	}
	coordinator := provider.Exchange()
	if coordinator == nil {
		return core.NullCoordinator{}
	}
	return coordinator
}

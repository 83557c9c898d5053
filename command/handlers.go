package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goident/partneragent/core"
)

// MutatingService is the write half of the partner lifecycle surface.
type MutatingService interface {
	AddPartner(ctx context.Context, did string, alias string) (core.Partner, error)
	RemovePartnerByID(ctx context.Context, id string) error
	RefreshPartner(ctx context.Context, id string) (core.Partner, error)
	RefreshStalePartners(ctx context.Context, limit int) (int, error)
}

// ExchangeService is the write half of the exchange surface.
type ExchangeService interface {
	SendCredentialRequest(ctx context.Context, partnerID string, documentID string) (core.CredentialExchange, error)
	SendPresentProofRequest(ctx context.Context, partnerID string, credentialDefinitionID string) (core.ProofExchange, error)
}

type AddPartnerCommand struct {
	service MutatingService
}

func NewAddPartnerCommand(service MutatingService) *AddPartnerCommand {
	return &AddPartnerCommand{service: service}
}

func (c *AddPartnerCommand) Execute(ctx context.Context, msg AddPartnerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: partner service is required")
	}
	out, err := c.service.AddPartner(ctx, msg.DID, msg.Alias)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemovePartnerCommand struct {
	service MutatingService
}

func NewRemovePartnerCommand(service MutatingService) *RemovePartnerCommand {
	return &RemovePartnerCommand{service: service}
}

func (c *RemovePartnerCommand) Execute(ctx context.Context, msg RemovePartnerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: partner service is required")
	}
	return c.service.RemovePartnerByID(ctx, msg.PartnerID)
}

type RefreshPartnerCommand struct {
	service MutatingService
}

func NewRefreshPartnerCommand(service MutatingService) *RefreshPartnerCommand {
	return &RefreshPartnerCommand{service: service}
}

func (c *RefreshPartnerCommand) Execute(ctx context.Context, msg RefreshPartnerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: partner service is required")
	}
	out, err := c.service.RefreshPartner(ctx, msg.PartnerID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshStalePartnersCommand struct {
	service MutatingService
}

func NewRefreshStalePartnersCommand(service MutatingService) *RefreshStalePartnersCommand {
	return &RefreshStalePartnersCommand{service: service}
}

func (c *RefreshStalePartnersCommand) Execute(ctx context.Context, msg RefreshStalePartnersMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: partner service is required")
	}
	out, err := c.service.RefreshStalePartners(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RequestCredentialCommand struct {
	service ExchangeService
}

func NewRequestCredentialCommand(service ExchangeService) *RequestCredentialCommand {
	return &RequestCredentialCommand{service: service}
}

func (c *RequestCredentialCommand) Execute(ctx context.Context, msg RequestCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: exchange service is required")
	}
	out, err := c.service.SendCredentialRequest(ctx, msg.PartnerID, msg.DocumentID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RequestProofCommand struct {
	service ExchangeService
}

func NewRequestProofCommand(service ExchangeService) *RequestProofCommand {
	return &RequestProofCommand{service: service}
}

func (c *RequestProofCommand) Execute(ctx context.Context, msg RequestProofMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: exchange service is required")
	}
	out, err := c.service.SendPresentProofRequest(ctx, msg.PartnerID, msg.CredentialDefinitionID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

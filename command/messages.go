package command

import (
	"fmt"
	"strings"

	"github.com/goident/partneragent/core"
)

const (
	TypeAddPartner           = "partneragent.command.partner.add"
	TypeRemovePartner        = "partneragent.command.partner.remove"
	TypeRefreshPartner       = "partneragent.command.partner.refresh"
	TypeRefreshStalePartners = "partneragent.command.partner.refresh_stale"
	TypeRequestCredential    = "partneragent.command.credential.request"
	TypeRequestProof         = "partneragent.command.proof.request"
)

type AddPartnerMessage struct {
	DID   string
	Alias string
}

func (AddPartnerMessage) Type() string { return TypeAddPartner }

func (m AddPartnerMessage) Validate() error {
	if err := core.ValidateDID(m.DID); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type RemovePartnerMessage struct {
	PartnerID string
}

func (RemovePartnerMessage) Type() string { return TypeRemovePartner }

func (m RemovePartnerMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("command: partner id is required")
	}
	return nil
}

type RefreshPartnerMessage struct {
	PartnerID string
}

func (RefreshPartnerMessage) Type() string { return TypeRefreshPartner }

func (m RefreshPartnerMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("command: partner id is required")
	}
	return nil
}

type RefreshStalePartnersMessage struct {
	Limit int
}

func (RefreshStalePartnersMessage) Type() string { return TypeRefreshStalePartners }

func (m RefreshStalePartnersMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("command: limit must be >= 0")
	}
	return nil
}

type RequestCredentialMessage struct {
	PartnerID  string
	DocumentID string
}

func (RequestCredentialMessage) Type() string { return TypeRequestCredential }

func (m RequestCredentialMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("command: partner id is required")
	}
	if strings.TrimSpace(m.DocumentID) == "" {
		return fmt.Errorf("command: document id is required")
	}
	return nil
}

type RequestProofMessage struct {
	PartnerID              string
	CredentialDefinitionID string
}

func (RequestProofMessage) Type() string { return TypeRequestProof }

func (m RequestProofMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("command: partner id is required")
	}
	if strings.TrimSpace(m.CredentialDefinitionID) == "" {
		return fmt.Errorf("command: credential definition id is required")
	}
	return nil
}

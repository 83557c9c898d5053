package query

import (
	"fmt"
	"strings"

	"github.com/goident/partneragent/core"
)

const (
	TypeLookupPartner      = "partneragent.query.partner.lookup"
	TypeGetPartner         = "partneragent.query.partner.get"
	TypeListPartners       = "partneragent.query.partner.list"
	TypePartnerCredDefs    = "partneragent.query.partner.cred_defs"
	TypeListCredExchanges  = "partneragent.query.credential.list"
	TypeListProofExchanges = "partneragent.query.proof.list"
	TypeGetProofExchange   = "partneragent.query.proof.get"
)

type LookupPartnerMessage struct {
	DID string
}

func (LookupPartnerMessage) Type() string { return TypeLookupPartner }

func (m LookupPartnerMessage) Validate() error {
	if err := core.ValidateDID(m.DID); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

type GetPartnerMessage struct {
	PartnerID string
}

func (GetPartnerMessage) Type() string { return TypeGetPartner }

func (m GetPartnerMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("query: partner id is required")
	}
	return nil
}

type ListPartnersMessage struct{}

func (ListPartnersMessage) Type() string { return TypeListPartners }

func (ListPartnersMessage) Validate() error { return nil }

type PartnerCredDefsMessage struct {
	PartnerID string
}

func (PartnerCredDefsMessage) Type() string { return TypePartnerCredDefs }

func (m PartnerCredDefsMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("query: partner id is required")
	}
	return nil
}

type ListCredentialExchangesMessage struct {
	PartnerID string
}

func (ListCredentialExchangesMessage) Type() string { return TypeListCredExchanges }

func (m ListCredentialExchangesMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("query: partner id is required")
	}
	return nil
}

type ListProofExchangesMessage struct {
	PartnerID string
}

func (ListProofExchangesMessage) Type() string { return TypeListProofExchanges }

func (m ListProofExchangesMessage) Validate() error {
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("query: partner id is required")
	}
	return nil
}

type GetProofExchangeMessage struct {
	ProofID string
}

func (GetProofExchangeMessage) Type() string { return TypeGetProofExchange }

func (m GetProofExchangeMessage) Validate() error {
	if strings.TrimSpace(m.ProofID) == "" {
		return fmt.Errorf("query: proof id is required")
	}
	return nil
}

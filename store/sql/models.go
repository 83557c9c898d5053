package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type partnerRecord struct {
	bun.BaseModel `bun:"table:partners,alias:p"`

	ID              string              `bun:"id,pk"`
	DID             string              `bun:"did,notnull,unique"`
	Alias           string              `bun:"alias"`
	ProfileName     string              `bun:"profile_name"`
	ProfileEndpoint string              `bun:"profile_endpoint"`
	CredentialTypes []credentialTypeDoc `bun:"credential_types,type:jsonb,notnull"`
	State           string              `bun:"state,notnull"`
	NeedsRefresh    bool                `bun:"needs_refresh,notnull"`
	LastRefreshedAt *time.Time          `bun:"last_refreshed_at,nullzero"`
	CreatedAt       time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type credentialTypeDoc struct {
	CredentialDefinitionID string `json:"credential_definition_id"`
	Name                   string `json:"name"`
}

type credentialExchangeRecord struct {
	bun.BaseModel `bun:"table:credential_exchanges,alias:ce"`

	ID                     string    `bun:"id,pk"`
	PartnerID              string    `bun:"partner_id,notnull"`
	DocumentID             string    `bun:"document_id,notnull"`
	CredentialDefinitionID string    `bun:"credential_definition_id"`
	State                  string    `bun:"state,notnull"`
	LastError              string    `bun:"last_error"`
	CreatedAt              time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type proofExchangeRecord struct {
	bun.BaseModel `bun:"table:proof_exchanges,alias:pe"`

	ID                     string    `bun:"id,pk"`
	PartnerID              string    `bun:"partner_id,notnull"`
	CredentialDefinitionID string    `bun:"credential_definition_id,notnull"`
	State                  string    `bun:"state,notnull"`
	LastError              string    `bun:"last_error"`
	CreatedAt              time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

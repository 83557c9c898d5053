package sqlstore

import (
	"strings"
	"time"

	"github.com/goident/partneragent/core"
)

func newPartnerRecord(in core.CreatePartnerInput, now time.Time) *partnerRecord {
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = core.PartnerStateAdded
	}
	record := &partnerRecord{
		DID:             strings.TrimSpace(in.DID),
		Alias:           strings.TrimSpace(in.Alias),
		ProfileName:     in.Profile.Name,
		ProfileEndpoint: in.Profile.Endpoint,
		CredentialTypes: credentialTypesToDocs(in.Profile.CredentialTypes),
		State:           string(state),
		NeedsRefresh:    in.NeedsRefresh,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !in.Profile.IsZero() {
		refreshedAt := now
		record.LastRefreshedAt = &refreshedAt
	}
	return record
}

func (r *partnerRecord) toDomain() core.Partner {
	if r == nil {
		return core.Partner{}
	}
	partner := core.Partner{
		ID:    r.ID,
		DID:   r.DID,
		Alias: r.Alias,
		Profile: core.PartnerProfile{
			Name:            r.ProfileName,
			Endpoint:        r.ProfileEndpoint,
			CredentialTypes: docsToCredentialTypes(r.CredentialTypes),
		},
		State:        core.PartnerState(r.State),
		NeedsRefresh: r.NeedsRefresh,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastRefreshedAt != nil {
		refreshedAt := *r.LastRefreshedAt
		partner.LastRefreshedAt = &refreshedAt
	}
	return partner
}

func (r *partnerRecord) applyDomain(partner core.Partner, now time.Time) {
	if r == nil {
		return
	}
	r.Alias = strings.TrimSpace(partner.Alias)
	r.ProfileName = partner.Profile.Name
	r.ProfileEndpoint = partner.Profile.Endpoint
	r.CredentialTypes = credentialTypesToDocs(partner.Profile.CredentialTypes)
	r.State = string(partner.State)
	r.NeedsRefresh = partner.NeedsRefresh
	if partner.LastRefreshedAt != nil {
		refreshedAt := *partner.LastRefreshedAt
		r.LastRefreshedAt = &refreshedAt
	}
	r.UpdatedAt = now
}

func newCredentialExchangeRecord(in core.CreateCredentialExchangeInput, now time.Time) *credentialExchangeRecord {
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = core.CredentialExchangeStateRequested
	}
	return &credentialExchangeRecord{
		PartnerID:  strings.TrimSpace(in.PartnerID),
		DocumentID: strings.TrimSpace(in.DocumentID),
		State:      string(state),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *credentialExchangeRecord) toDomain() core.CredentialExchange {
	if r == nil {
		return core.CredentialExchange{}
	}
	return core.CredentialExchange{
		ID:                     r.ID,
		PartnerID:              r.PartnerID,
		DocumentID:             r.DocumentID,
		CredentialDefinitionID: r.CredentialDefinitionID,
		State:                  core.CredentialExchangeState(r.State),
		LastError:              r.LastError,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func newProofExchangeRecord(in core.CreateProofExchangeInput, now time.Time) *proofExchangeRecord {
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = core.ProofExchangeStateRequested
	}
	return &proofExchangeRecord{
		PartnerID:              strings.TrimSpace(in.PartnerID),
		CredentialDefinitionID: strings.TrimSpace(in.CredentialDefinitionID),
		State:                  string(state),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func (r *proofExchangeRecord) toDomain() core.ProofExchange {
	if r == nil {
		return core.ProofExchange{}
	}
	return core.ProofExchange{
		ID:                     r.ID,
		PartnerID:              r.PartnerID,
		CredentialDefinitionID: r.CredentialDefinitionID,
		State:                  core.ProofExchangeState(r.State),
		LastError:              r.LastError,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func credentialTypesToDocs(types []core.CredentialType) []credentialTypeDoc {
	docs := make([]credentialTypeDoc, 0, len(types))
	for _, credType := range types {
		docs = append(docs, credentialTypeDoc{
			CredentialDefinitionID: credType.CredentialDefinitionID,
			Name:                   credType.Name,
		})
	}
	return docs
}

func docsToCredentialTypes(docs []credentialTypeDoc) []core.CredentialType {
	if len(docs) == 0 {
		return nil
	}
	types := make([]core.CredentialType, 0, len(docs))
	for _, doc := range docs {
		types = append(types, core.CredentialType{
			CredentialDefinitionID: doc.CredentialDefinitionID,
			Name:                   doc.Name,
		})
	}
	return types
}

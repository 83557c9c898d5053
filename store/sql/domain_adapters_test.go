package sqlstore

import (
	"testing"
	"time"

	"github.com/goident/partneragent/core"
)

func TestNewPartnerRecordDefaultsAndRefreshStamp(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	record := newPartnerRecord(core.CreatePartnerInput{
		DID:   "  did:web:acme.example  ",
		Alias: "  acme  ",
		Profile: core.PartnerProfile{
			Name:     "Acme Issuer",
			Endpoint: "https://agent.acme.example",
			CredentialTypes: []core.CredentialType{
				{CredentialDefinitionID: "cred-def-1", Name: "Employment"},
			},
		},
	}, now)

	if record.DID != "did:web:acme.example" {
		t.Fatalf("expected trimmed did, got %q", record.DID)
	}
	if record.Alias != "acme" {
		t.Fatalf("expected trimmed alias, got %q", record.Alias)
	}
	if record.State != string(core.PartnerStateAdded) {
		t.Fatalf("expected default state added, got %q", record.State)
	}
	if record.LastRefreshedAt == nil || !record.LastRefreshedAt.Equal(now) {
		t.Fatalf("expected refresh stamp for a resolved profile")
	}
	if len(record.CredentialTypes) != 1 || record.CredentialTypes[0].CredentialDefinitionID != "cred-def-1" {
		t.Fatalf("expected credential types to map to docs")
	}
}

func TestNewPartnerRecordOfflineProfileHasNoRefreshStamp(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	record := newPartnerRecord(core.CreatePartnerInput{
		DID:          "did:web:offline.example",
		NeedsRefresh: true,
	}, now)

	if record.LastRefreshedAt != nil {
		t.Fatalf("expected no refresh stamp for an empty profile")
	}
	if !record.NeedsRefresh {
		t.Fatalf("expected needs refresh to carry over")
	}
}

func TestPartnerRecordDomainRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	refreshedAt := now.Add(-time.Hour)

	record := &partnerRecord{
		ID:              "partner_1",
		DID:             "did:web:acme.example",
		Alias:           "acme",
		ProfileName:     "Acme Issuer",
		ProfileEndpoint: "https://agent.acme.example",
		CredentialTypes: []credentialTypeDoc{
			{CredentialDefinitionID: "cred-def-1", Name: "Employment"},
		},
		State:           string(core.PartnerStateRefreshed),
		NeedsRefresh:    false,
		LastRefreshedAt: &refreshedAt,
		CreatedAt:       now.Add(-24 * time.Hour),
		UpdatedAt:       now,
	}

	partner := record.toDomain()
	if partner.ID != "partner_1" || partner.DID != "did:web:acme.example" {
		t.Fatalf("expected identity fields to map, got %+v", partner)
	}
	if partner.State != core.PartnerStateRefreshed {
		t.Fatalf("expected state refreshed, got %q", partner.State)
	}
	if len(partner.Profile.CredentialTypes) != 1 || partner.Profile.CredentialTypes[0].Name != "Employment" {
		t.Fatalf("expected credential types to map back")
	}
	if partner.LastRefreshedAt == nil || !partner.LastRefreshedAt.Equal(refreshedAt) {
		t.Fatalf("expected refresh stamp to map back")
	}

	// The returned pointer must be a copy, not an alias into the record.
	*partner.LastRefreshedAt = now.Add(time.Hour)
	if !record.LastRefreshedAt.Equal(refreshedAt) {
		t.Fatalf("expected record refresh stamp to be isolated from the domain copy")
	}
}

func TestPartnerRecordApplyDomainUpdatesMutableFields(t *testing.T) {
	created := time.Date(2026, 2, 9, 9, 30, 0, 0, time.UTC)
	now := created.Add(2 * time.Hour)
	refreshedAt := now.Add(-time.Minute)

	record := &partnerRecord{
		ID:        "partner_1",
		DID:       "did:web:acme.example",
		State:     string(core.PartnerStateAdded),
		CreatedAt: created,
		UpdatedAt: created,
	}

	record.applyDomain(core.Partner{
		ID:    "partner_1",
		DID:   "did:web:other.example",
		Alias: "  renamed  ",
		Profile: core.PartnerProfile{
			Name:     "Acme Issuer",
			Endpoint: "https://agent.acme.example",
		},
		State:           core.PartnerStateRefreshed,
		NeedsRefresh:    true,
		LastRefreshedAt: &refreshedAt,
	}, now)

	if record.DID != "did:web:acme.example" {
		t.Fatalf("expected did to be immutable, got %q", record.DID)
	}
	if record.Alias != "renamed" {
		t.Fatalf("expected trimmed alias, got %q", record.Alias)
	}
	if record.State != string(core.PartnerStateRefreshed) {
		t.Fatalf("expected state refreshed, got %q", record.State)
	}
	if !record.NeedsRefresh {
		t.Fatalf("expected needs refresh to apply")
	}
	if record.LastRefreshedAt == nil || !record.LastRefreshedAt.Equal(refreshedAt) {
		t.Fatalf("expected refresh stamp to apply")
	}
	if !record.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated at %s, got %s", now, record.UpdatedAt)
	}
	if !record.CreatedAt.Equal(created) {
		t.Fatalf("expected created at to be untouched")
	}
}

func TestNewExchangeRecordsDefaultToRequested(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	cred := newCredentialExchangeRecord(core.CreateCredentialExchangeInput{
		PartnerID:  " partner_1 ",
		DocumentID: " doc-1 ",
	}, now)
	if cred.PartnerID != "partner_1" || cred.DocumentID != "doc-1" {
		t.Fatalf("expected trimmed exchange fields, got %+v", cred)
	}
	if cred.State != string(core.CredentialExchangeStateRequested) {
		t.Fatalf("expected default credential state requested, got %q", cred.State)
	}

	proof := newProofExchangeRecord(core.CreateProofExchangeInput{
		PartnerID:              "partner_1",
		CredentialDefinitionID: " cred-def-1 ",
	}, now)
	if proof.CredentialDefinitionID != "cred-def-1" {
		t.Fatalf("expected trimmed cred def id, got %q", proof.CredentialDefinitionID)
	}
	if proof.State != string(core.ProofExchangeStateRequested) {
		t.Fatalf("expected default proof state requested, got %q", proof.State)
	}
}

func TestExchangeRecordToDomain(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	cred := &credentialExchangeRecord{
		ID:                     "cred_1",
		PartnerID:              "partner_1",
		DocumentID:             "doc-1",
		CredentialDefinitionID: "cred-def-1",
		State:                  string(core.CredentialExchangeStateIssued),
		LastError:              "holder refused",
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	credDomain := cred.toDomain()
	if credDomain.ID != "cred_1" || credDomain.State != core.CredentialExchangeStateIssued {
		t.Fatalf("unexpected credential mapping: %+v", credDomain)
	}
	if credDomain.LastError != "holder refused" {
		t.Fatalf("expected last error to map")
	}

	proof := &proofExchangeRecord{
		ID:                     "proof_1",
		PartnerID:              "partner_1",
		CredentialDefinitionID: "cred-def-1",
		State:                  string(core.ProofExchangeStateVerified),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	proofDomain := proof.toDomain()
	if proofDomain.ID != "proof_1" || proofDomain.State != core.ProofExchangeStateVerified {
		t.Fatalf("unexpected proof mapping: %+v", proofDomain)
	}
}

func TestDocsToCredentialTypesEmpty(t *testing.T) {
	if got := docsToCredentialTypes(nil); got != nil {
		t.Fatalf("expected nil for empty docs, got %v", got)
	}
}

func TestPartnerCacheKeyEscapesValue(t *testing.T) {
	key := PartnerCacheKey("did", " did:web:acme.example/agent ")
	want := "partneragent::partner::v1::did::did:web:acme.example%2Fagent"
	if key != want {
		t.Fatalf("expected %q, got %q", want, key)
	}
}

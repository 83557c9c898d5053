package sqlstore_test

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/goident/partneragent/core"
	agentmigrations "github.com/goident/partneragent/migrations"
	sqlstore "github.com/goident/partneragent/store/sql"

	persistence "github.com/goliatone/go-persistence-bun"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"partners", "credential_exchanges", "proof_exchanges"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestPartnerStore_EnforcesDidUniqueness(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.PartnerStore()

	created, err := store.Create(ctx, core.CreatePartnerInput{
		DID:   "did:web:acme.example",
		Alias: "acme",
		Profile: core.PartnerProfile{
			Name:     "Acme Issuer",
			Endpoint: "https://agent.acme.example",
			CredentialTypes: []core.CredentialType{
				{CredentialDefinitionID: "cred-def-1", Name: "Employment"},
			},
		},
	})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated partner id")
	}
	if created.State != core.PartnerStateAdded {
		t.Fatalf("expected default added state, got %q", created.State)
	}

	if _, err := store.Create(ctx, core.CreatePartnerInput{
		DID: "did:web:acme.example",
	}); !core.IsTextCode(err, core.AgentErrorDuplicateDid) {
		t.Fatalf("expected duplicate did error, got %v", err)
	}

	byDID, err := store.GetByDID(ctx, "did:web:acme.example")
	if err != nil {
		t.Fatalf("get by did: %v", err)
	}
	if byDID.ID != created.ID {
		t.Fatalf("expected did lookup to return the created partner")
	}
	if len(byDID.Profile.CredentialTypes) != 1 || byDID.Profile.CredentialTypes[0].CredentialDefinitionID != "cred-def-1" {
		t.Fatalf("expected credential types to round trip through the jsonb column")
	}
}

func TestPartnerStore_ListNeedingRefresh(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.PartnerStore()

	fresh, err := store.Create(ctx, core.CreatePartnerInput{
		DID:     "did:web:fresh.example",
		Profile: core.PartnerProfile{Name: "Fresh", Endpoint: "https://fresh.example"},
	})
	if err != nil {
		t.Fatalf("create fresh partner: %v", err)
	}
	stale, err := store.Create(ctx, core.CreatePartnerInput{
		DID:          "did:web:stale.example",
		NeedsRefresh: true,
	})
	if err != nil {
		t.Fatalf("create stale partner: %v", err)
	}

	needing, err := store.ListNeedingRefresh(ctx, 10)
	if err != nil {
		t.Fatalf("list needing refresh: %v", err)
	}
	if len(needing) != 1 || needing[0].ID != stale.ID {
		t.Fatalf("expected only the stale partner, got %+v", needing)
	}

	flagged := fresh
	flagged.NeedsRefresh = true
	if _, err := store.Update(ctx, flagged); err != nil {
		t.Fatalf("flag fresh partner: %v", err)
	}
	needing, err = store.ListNeedingRefresh(ctx, 1)
	if err != nil {
		t.Fatalf("list needing refresh with limit: %v", err)
	}
	if len(needing) != 1 {
		t.Fatalf("expected limit to cap results, got %d", len(needing))
	}
}

func TestPartnerStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.PartnerStore()

	created, err := store.Create(ctx, core.CreatePartnerInput{DID: "did:web:gone.example"})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete partner: %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("repeat delete should be a no-op: %v", err)
	}
	missing, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get deleted partner: %v", err)
	}
	if missing.ID != "" {
		t.Fatalf("expected deleted partner to be gone")
	}
}

func TestExchangeStore_ActiveCredentialExchangeUniqueness(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ExchangeStore()

	first, err := store.CreateCredentialExchange(ctx, core.CreateCredentialExchangeInput{
		PartnerID:  "partner_1",
		DocumentID: "doc-1",
	})
	if err != nil {
		t.Fatalf("create credential exchange: %v", err)
	}
	if first.State != core.CredentialExchangeStateRequested {
		t.Fatalf("expected requested state, got %q", first.State)
	}

	active, found, err := store.FindActiveCredentialExchange(ctx, "partner_1", "doc-1")
	if err != nil {
		t.Fatalf("find active exchange: %v", err)
	}
	if !found || active.ID != first.ID {
		t.Fatalf("expected the requested exchange to count as active")
	}

	if _, err := store.CreateCredentialExchange(ctx, core.CreateCredentialExchangeInput{
		PartnerID:  "partner_1",
		DocumentID: "doc-1",
	}); err == nil {
		t.Fatalf("expected the partial unique index to reject a second active exchange")
	}

	issued := first
	issued.State = core.CredentialExchangeStateIssued
	issued.CredentialDefinitionID = "cred-def-1"
	if _, err := store.UpdateCredentialExchange(ctx, issued); err != nil {
		t.Fatalf("issue exchange: %v", err)
	}

	if _, found, err = store.FindActiveCredentialExchange(ctx, "partner_1", "doc-1"); err != nil {
		t.Fatalf("find active after terminal: %v", err)
	} else if found {
		t.Fatalf("expected no active exchange after the issue")
	}

	second, err := store.CreateCredentialExchange(ctx, core.CreateCredentialExchangeInput{
		PartnerID:  "partner_1",
		DocumentID: "doc-1",
	})
	if err != nil {
		t.Fatalf("expected a terminal exchange to free the slot: %v", err)
	}

	exchanges, err := store.ListCredentialExchangesByPartner(ctx, "partner_1")
	if err != nil {
		t.Fatalf("list credential exchanges: %v", err)
	}
	if len(exchanges) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exchanges))
	}
	_ = second
}

func TestExchangeStore_ProofLifecyclePersistence(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ExchangeStore()

	proof, err := store.CreateProofExchange(ctx, core.CreateProofExchangeInput{
		PartnerID:              "partner_1",
		CredentialDefinitionID: "cred-def-1",
	})
	if err != nil {
		t.Fatalf("create proof exchange: %v", err)
	}

	// Concurrent proof requests for the same cred def are allowed.
	if _, err := store.CreateProofExchange(ctx, core.CreateProofExchangeInput{
		PartnerID:              "partner_1",
		CredentialDefinitionID: "cred-def-1",
	}); err != nil {
		t.Fatalf("create second proof exchange: %v", err)
	}

	rejected := proof
	rejected.State = core.ProofExchangeStateRejected
	rejected.LastError = "predicate unsatisfied"
	if _, err := store.UpdateProofExchange(ctx, rejected); err != nil {
		t.Fatalf("reject proof: %v", err)
	}

	loaded, err := store.GetProofExchange(ctx, proof.ID)
	if err != nil {
		t.Fatalf("get proof exchange: %v", err)
	}
	if loaded.State != core.ProofExchangeStateRejected || loaded.LastError != "predicate unsatisfied" {
		t.Fatalf("expected rejection to persist, got %+v", loaded)
	}

	proofs, err := store.ListProofExchangesByPartner(ctx, "partner_1")
	if err != nil {
		t.Fatalf("list proofs: %v", err)
	}
	if len(proofs) != 2 {
		t.Fatalf("expected 2 proofs, got %d", len(proofs))
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	cfg := sqlstore.ConnectionConfig{
		Driver: sqlstore.DriverSQLite,
		DSN: fmt.Sprintf(
			"file:partneragent-test-%d?mode=memory&cache=shared&_foreign_keys=on",
			time.Now().UnixNano(),
		),
		PingTimeout: time.Second,
	}

	client, err := sqlstore.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}

	ctx := context.Background()
	_, err = agentmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != agentmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, agentmigrations.WithValidationTargets(agentmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

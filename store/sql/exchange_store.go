package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goident/partneragent/core"
	"github.com/uptrace/bun"
)

// ExchangeStore persists credential and proof exchange records. Exchange
// rows are append-and-advance only; nothing here deletes them, so removed
// partners keep their exchange history.
type ExchangeStore struct {
	db             *bun.DB
	credentialRepo repository.Repository[*credentialExchangeRecord]
	proofRepo      repository.Repository[*proofExchangeRecord]
}

func (s *ExchangeStore) CreateCredentialExchange(ctx context.Context, in core.CreateCredentialExchangeInput) (core.CredentialExchange, error) {
	if s == nil || s.credentialRepo == nil {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	if strings.TrimSpace(in.PartnerID) == "" {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: partner id is required")
	}
	if strings.TrimSpace(in.DocumentID) == "" {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: document id is required")
	}
	record := newCredentialExchangeRecord(in, time.Now().UTC())
	created, err := s.credentialRepo.Create(ctx, record)
	if err != nil {
		return core.CredentialExchange{}, err
	}
	return created.toDomain(), nil
}

func (s *ExchangeStore) GetCredentialExchange(ctx context.Context, id string) (core.CredentialExchange, error) {
	if s == nil || s.db == nil {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: exchange id is required")
	}
	record := &credentialExchangeRecord{}
	err := s.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CredentialExchange{}, nil
	}
	if err != nil {
		return core.CredentialExchange{}, err
	}
	return record.toDomain(), nil
}

func (s *ExchangeStore) UpdateCredentialExchange(ctx context.Context, exchange core.CredentialExchange) (core.CredentialExchange, error) {
	if s == nil || s.credentialRepo == nil {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	id := strings.TrimSpace(exchange.ID)
	if id == "" {
		return core.CredentialExchange{}, fmt.Errorf("sqlstore: exchange id is required")
	}
	current, err := s.credentialRepo.GetByID(ctx, id)
	if err != nil {
		return core.CredentialExchange{}, err
	}
	current.CredentialDefinitionID = strings.TrimSpace(exchange.CredentialDefinitionID)
	current.State = string(exchange.State)
	current.LastError = exchange.LastError
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.credentialRepo.Update(ctx, current, repository.UpdateByID(id))
	if err != nil {
		return core.CredentialExchange{}, err
	}
	return updated.toDomain(), nil
}

func (s *ExchangeStore) ListCredentialExchangesByPartner(ctx context.Context, partnerID string) ([]core.CredentialExchange, error) {
	if s == nil || s.credentialRepo == nil {
		return nil, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	records, _, err := s.credentialRepo.List(ctx,
		repository.SelectBy("partner_id", "=", strings.TrimSpace(partnerID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.CredentialExchange, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// FindActiveCredentialExchange returns the one non-terminal exchange for the
// (partner, document) pair, if any. Callers hold the partner lock, so a
// found=false answer stays valid until the caller creates the exchange.
func (s *ExchangeStore) FindActiveCredentialExchange(ctx context.Context, partnerID string, documentID string) (core.CredentialExchange, bool, error) {
	if s == nil || s.db == nil {
		return core.CredentialExchange{}, false, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	partnerID = strings.TrimSpace(partnerID)
	documentID = strings.TrimSpace(documentID)
	if partnerID == "" || documentID == "" {
		return core.CredentialExchange{}, false, fmt.Errorf("sqlstore: partner id and document id are required")
	}

	record := &credentialExchangeRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.partner_id = ?", partnerID).
		Where("?TableAlias.document_id = ?", documentID).
		Where("?TableAlias.state NOT IN (?)", bun.In([]string{
			string(core.CredentialExchangeStateIssued),
			string(core.CredentialExchangeStateDeclined),
			string(core.CredentialExchangeStateFailed),
		})).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CredentialExchange{}, false, nil
	}
	if err != nil {
		return core.CredentialExchange{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *ExchangeStore) CreateProofExchange(ctx context.Context, in core.CreateProofExchangeInput) (core.ProofExchange, error) {
	if s == nil || s.proofRepo == nil {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	if strings.TrimSpace(in.PartnerID) == "" {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: partner id is required")
	}
	if strings.TrimSpace(in.CredentialDefinitionID) == "" {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: credential definition id is required")
	}
	record := newProofExchangeRecord(in, time.Now().UTC())
	created, err := s.proofRepo.Create(ctx, record)
	if err != nil {
		return core.ProofExchange{}, err
	}
	return created.toDomain(), nil
}

func (s *ExchangeStore) GetProofExchange(ctx context.Context, id string) (core.ProofExchange, error) {
	if s == nil || s.db == nil {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: exchange id is required")
	}
	record := &proofExchangeRecord{}
	err := s.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ProofExchange{}, nil
	}
	if err != nil {
		return core.ProofExchange{}, err
	}
	return record.toDomain(), nil
}

func (s *ExchangeStore) UpdateProofExchange(ctx context.Context, exchange core.ProofExchange) (core.ProofExchange, error) {
	if s == nil || s.proofRepo == nil {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	id := strings.TrimSpace(exchange.ID)
	if id == "" {
		return core.ProofExchange{}, fmt.Errorf("sqlstore: exchange id is required")
	}
	current, err := s.proofRepo.GetByID(ctx, id)
	if err != nil {
		return core.ProofExchange{}, err
	}
	current.State = string(exchange.State)
	current.LastError = exchange.LastError
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.proofRepo.Update(ctx, current, repository.UpdateByID(id))
	if err != nil {
		return core.ProofExchange{}, err
	}
	return updated.toDomain(), nil
}

func (s *ExchangeStore) ListProofExchangesByPartner(ctx context.Context, partnerID string) ([]core.ProofExchange, error) {
	if s == nil || s.proofRepo == nil {
		return nil, fmt.Errorf("sqlstore: exchange store is not configured")
	}
	records, _, err := s.proofRepo.List(ctx,
		repository.SelectBy("partner_id", "=", strings.TrimSpace(partnerID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.ProofExchange, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.ExchangeStore = (*ExchangeStore)(nil)

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

// PartnerStore persists partner records. The did column carries a unique
// constraint; Create re-checks before inserting so the common duplicate
// path surfaces as a typed error rather than a driver error.
type PartnerStore struct {
	db   *bun.DB
	repo repository.Repository[*partnerRecord]
}

func (s *PartnerStore) Create(ctx context.Context, in core.CreatePartnerInput) (core.Partner, error) {
	if s == nil || s.repo == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: partner store is not configured")
	}
	did := strings.TrimSpace(in.DID)
	if err := core.ValidateDID(did); err != nil {
		return core.Partner{}, err
	}

	if existing, err := s.GetByDID(ctx, did); err != nil {
		return core.Partner{}, err
	} else if existing.ID != "" {
		return core.Partner{}, core.DuplicateDidError(did)
	}

	record := newPartnerRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Partner{}, core.DuplicateDidError(did)
		}
		return core.Partner{}, err
	}
	return created.toDomain(), nil
}

func (s *PartnerStore) Get(ctx context.Context, id string) (core.Partner, error) {
	if s == nil || s.db == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: partner store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Partner{}, fmt.Errorf("sqlstore: partner id is required")
	}
	record := &partnerRecord{}
	err := s.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Partner{}, nil
	}
	if err != nil {
		return core.Partner{}, err
	}
	return record.toDomain(), nil
}

func (s *PartnerStore) GetByDID(ctx context.Context, did string) (core.Partner, error) {
	if s == nil || s.db == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: partner store is not configured")
	}
	did = strings.TrimSpace(did)
	if did == "" {
		return core.Partner{}, fmt.Errorf("sqlstore: did is required")
	}
	record := &partnerRecord{}
	err := s.db.NewSelect().Model(record).Where("?TableAlias.did = ?", did).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Partner{}, nil
	}
	if err != nil {
		return core.Partner{}, err
	}
	return record.toDomain(), nil
}

func (s *PartnerStore) Update(ctx context.Context, partner core.Partner) (core.Partner, error) {
	if s == nil || s.repo == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: partner store is not configured")
	}
	id := strings.TrimSpace(partner.ID)
	if id == "" {
		return core.Partner{}, fmt.Errorf("sqlstore: partner id is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return core.Partner{}, err
	}
	current.applyDomain(partner, time.Now().UTC())

	updated, err := s.repo.Update(ctx, current, repository.UpdateByID(id))
	if err != nil {
		return core.Partner{}, err
	}
	return updated.toDomain(), nil
}

// Delete removes the partner record. Deleting an unknown id is a no-op so
// removal stays idempotent.
func (s *PartnerStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: partner store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: partner id is required")
	}
	_, err := s.db.NewDelete().
		Model((*partnerRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *PartnerStore) List(ctx context.Context) ([]core.Partner, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: partner store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Partner, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *PartnerStore) ListNeedingRefresh(ctx context.Context, limit int) ([]core.Partner, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: partner store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.needs_refresh = ?", true).Limit(limit)
		}),
		repository.OrderBy("updated_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Partner, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "unique violation")
}

var _ core.PartnerStore = (*PartnerStore)(nil)

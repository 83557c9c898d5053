package query

import (
	"context"

	"github.com/goident/partneragent/core"
)

// PartnerReader is the read half of the partner lifecycle surface.
type PartnerReader interface {
	LookupPartner(ctx context.Context, did string) (core.Partner, error)
	GetPartnerByID(ctx context.Context, id string) (core.Partner, error)
	GetPartners(ctx context.Context) ([]core.Partner, error)
}

// ExchangeReader is the read half of the exchange surface.
type ExchangeReader interface {
	GetPartnerCredDefs(ctx context.Context, partnerID string) ([]core.CredentialType, error)
	ListPartnerCredentialExchanges(ctx context.Context, partnerID string) ([]core.CredentialExchange, error)
	ListPartnerProofs(ctx context.Context, partnerID string) ([]core.ProofExchange, error)
	GetPartnerProofByID(ctx context.Context, proofID string) (core.ProofExchange, error)
}

type LookupPartnerQuery struct {
	reader PartnerReader
}

func NewLookupPartnerQuery(reader PartnerReader) *LookupPartnerQuery {
	return &LookupPartnerQuery{reader: reader}
}

func (q *LookupPartnerQuery) Query(ctx context.Context, msg LookupPartnerMessage) (core.Partner, error) {
	if q == nil || q.reader == nil {
		return core.Partner{}, queryDependencyError("query: partner reader is required")
	}
	return q.reader.LookupPartner(ctx, msg.DID)
}

type GetPartnerQuery struct {
	reader PartnerReader
}

func NewGetPartnerQuery(reader PartnerReader) *GetPartnerQuery {
	return &GetPartnerQuery{reader: reader}
}

func (q *GetPartnerQuery) Query(ctx context.Context, msg GetPartnerMessage) (core.Partner, error) {
	if q == nil || q.reader == nil {
		return core.Partner{}, queryDependencyError("query: partner reader is required")
	}
	return q.reader.GetPartnerByID(ctx, msg.PartnerID)
}

type ListPartnersQuery struct {
	reader PartnerReader
}

func NewListPartnersQuery(reader PartnerReader) *ListPartnersQuery {
	return &ListPartnersQuery{reader: reader}
}

func (q *ListPartnersQuery) Query(ctx context.Context, msg ListPartnersMessage) ([]core.Partner, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: partner reader is required")
	}
	return q.reader.GetPartners(ctx)
}

type PartnerCredDefsQuery struct {
	reader ExchangeReader
}

func NewPartnerCredDefsQuery(reader ExchangeReader) *PartnerCredDefsQuery {
	return &PartnerCredDefsQuery{reader: reader}
}

func (q *PartnerCredDefsQuery) Query(ctx context.Context, msg PartnerCredDefsMessage) ([]core.CredentialType, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: exchange reader is required")
	}
	return q.reader.GetPartnerCredDefs(ctx, msg.PartnerID)
}

type ListCredentialExchangesQuery struct {
	reader ExchangeReader
}

func NewListCredentialExchangesQuery(reader ExchangeReader) *ListCredentialExchangesQuery {
	return &ListCredentialExchangesQuery{reader: reader}
}

func (q *ListCredentialExchangesQuery) Query(
	ctx context.Context,
	msg ListCredentialExchangesMessage,
) ([]core.CredentialExchange, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: exchange reader is required")
	}
	return q.reader.ListPartnerCredentialExchanges(ctx, msg.PartnerID)
}

type ListProofExchangesQuery struct {
	reader ExchangeReader
}

func NewListProofExchangesQuery(reader ExchangeReader) *ListProofExchangesQuery {
	return &ListProofExchangesQuery{reader: reader}
}

func (q *ListProofExchangesQuery) Query(
	ctx context.Context,
	msg ListProofExchangesMessage,
) ([]core.ProofExchange, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: exchange reader is required")
	}
	return q.reader.ListPartnerProofs(ctx, msg.PartnerID)
}

type GetProofExchangeQuery struct {
	reader ExchangeReader
}

func NewGetProofExchangeQuery(reader ExchangeReader) *GetProofExchangeQuery {
	return &GetProofExchangeQuery{reader: reader}
}

func (q *GetProofExchangeQuery) Query(ctx context.Context, msg GetProofExchangeMessage) (core.ProofExchange, error) {
	if q == nil || q.reader == nil {
		return core.ProofExchange{}, queryDependencyError("query: exchange reader is required")
	}
	return q.reader.GetPartnerProofByID(ctx, msg.ProofID)
}

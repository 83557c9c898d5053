package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryPartnerStore struct {
	mu    sync.Mutex
	next  int
	order []string
	byID  map[string]Partner
}

func newMemoryPartnerStore() *memoryPartnerStore {
	return &memoryPartnerStore{byID: map[string]Partner{}}
}

func (s *memoryPartnerStore) Create(_ context.Context, in CreatePartnerInput) (Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.DID = strings.TrimSpace(in.DID)
	if in.DID == "" {
		return Partner{}, fmt.Errorf("did is required")
	}
	for _, existing := range s.byID {
		if existing.DID == in.DID {
			return Partner{}, DuplicateDidError(in.DID)
		}
	}
	s.next++
	now := time.Now().UTC()
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = PartnerStateAdded
	}
	partner := Partner{
		ID:           fmt.Sprintf("partner_%d", s.next),
		DID:          in.DID,
		Alias:        strings.TrimSpace(in.Alias),
		Profile:      in.Profile,
		State:        state,
		NeedsRefresh: in.NeedsRefresh,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !in.Profile.IsZero() {
		refreshedAt := now
		partner.LastRefreshedAt = &refreshedAt
	}
	s.byID[partner.ID] = partner
	s.order = append(s.order, partner.ID)
	return partner, nil
}

func (s *memoryPartnerStore) Get(_ context.Context, id string) (Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[strings.TrimSpace(id)], nil
}

func (s *memoryPartnerStore) GetByDID(_ context.Context, did string) (Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	did = strings.TrimSpace(did)
	for _, partner := range s.byID {
		if partner.DID == did {
			return partner, nil
		}
	}
	return Partner{}, nil
}

func (s *memoryPartnerStore) Update(_ context.Context, partner Partner) (Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[partner.ID]; !ok {
		return Partner{}, fmt.Errorf("partner %q not found", partner.ID)
	}
	s.byID[partner.ID] = partner
	return partner, nil
}

func (s *memoryPartnerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryPartnerStore) List(_ context.Context) ([]Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Partner, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *memoryPartnerStore) ListNeedingRefresh(_ context.Context, limit int) ([]Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Partner{}
	for _, id := range s.order {
		if len(out) >= limit {
			break
		}
		if s.byID[id].NeedsRefresh {
			out = append(out, s.byID[id])
		}
	}
	return out, nil
}

type memoryExchangeStore struct {
	mu          sync.Mutex
	next        int
	credentials map[string]CredentialExchange
	credOrder   []string
	proofs      map[string]ProofExchange
	proofOrder  []string
}

func newMemoryExchangeStore() *memoryExchangeStore {
	return &memoryExchangeStore{
		credentials: map[string]CredentialExchange{},
		proofs:      map[string]ProofExchange{},
	}
}

func (s *memoryExchangeStore) CreateCredentialExchange(_ context.Context, in CreateCredentialExchangeInput) (CredentialExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	now := time.Now().UTC()
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = CredentialExchangeStateRequested
	}
	exchange := CredentialExchange{
		ID:         fmt.Sprintf("cred_%d", s.next),
		PartnerID:  strings.TrimSpace(in.PartnerID),
		DocumentID: strings.TrimSpace(in.DocumentID),
		State:      state,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.credentials[exchange.ID] = exchange
	s.credOrder = append(s.credOrder, exchange.ID)
	return exchange, nil
}

func (s *memoryExchangeStore) GetCredentialExchange(_ context.Context, id string) (CredentialExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials[strings.TrimSpace(id)], nil
}

func (s *memoryExchangeStore) UpdateCredentialExchange(_ context.Context, exchange CredentialExchange) (CredentialExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[exchange.ID]; !ok {
		return CredentialExchange{}, fmt.Errorf("credential exchange %q not found", exchange.ID)
	}
	s.credentials[exchange.ID] = exchange
	return exchange, nil
}

func (s *memoryExchangeStore) ListCredentialExchangesByPartner(_ context.Context, partnerID string) ([]CredentialExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []CredentialExchange{}
	for _, id := range s.credOrder {
		if s.credentials[id].PartnerID == partnerID {
			out = append(out, s.credentials[id])
		}
	}
	return out, nil
}

func (s *memoryExchangeStore) FindActiveCredentialExchange(_ context.Context, partnerID string, documentID string) (CredentialExchange, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.credOrder {
		exchange := s.credentials[id]
		if exchange.PartnerID == partnerID && exchange.DocumentID == documentID && !exchange.State.Terminal() {
			return exchange, true, nil
		}
	}
	return CredentialExchange{}, false, nil
}

func (s *memoryExchangeStore) CreateProofExchange(_ context.Context, in CreateProofExchangeInput) (ProofExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	now := time.Now().UTC()
	state := in.State
	if strings.TrimSpace(string(state)) == "" {
		state = ProofExchangeStateRequested
	}
	exchange := ProofExchange{
		ID:                     fmt.Sprintf("proof_%d", s.next),
		PartnerID:              strings.TrimSpace(in.PartnerID),
		CredentialDefinitionID: strings.TrimSpace(in.CredentialDefinitionID),
		State:                  state,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	s.proofs[exchange.ID] = exchange
	s.proofOrder = append(s.proofOrder, exchange.ID)
	return exchange, nil
}

func (s *memoryExchangeStore) GetProofExchange(_ context.Context, id string) (ProofExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proofs[strings.TrimSpace(id)], nil
}

func (s *memoryExchangeStore) UpdateProofExchange(_ context.Context, exchange ProofExchange) (ProofExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proofs[exchange.ID]; !ok {
		return ProofExchange{}, fmt.Errorf("proof exchange %q not found", exchange.ID)
	}
	s.proofs[exchange.ID] = exchange
	return exchange, nil
}

func (s *memoryExchangeStore) ListProofExchangesByPartner(_ context.Context, partnerID string) ([]ProofExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ProofExchange{}
	for _, id := range s.proofOrder {
		if s.proofs[id].PartnerID == partnerID {
			out = append(out, s.proofs[id])
		}
	}
	return out, nil
}

type stubLookupClient struct {
	mu      sync.Mutex
	profile PartnerProfile
	err     error
	calls   int
}

func (c *stubLookupClient) FetchProfile(context.Context, string) (PartnerProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return PartnerProfile{}, c.err
	}
	return c.profile, nil
}

func (c *stubLookupClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubGateway struct {
	mu       sync.Mutex
	err      error
	messages []ProtocolMessage
}

func (g *stubGateway) Dispatch(_ context.Context, _ string, msg ProtocolMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.messages = append(g.messages, msg)
	return nil
}

func (g *stubGateway) sent() []ProtocolMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ProtocolMessage(nil), g.messages...)
}

type stubEnqueuer struct {
	mu       sync.Mutex
	err      error
	messages []*JobExecutionMessage
}

func (e *stubEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

func (e *stubEnqueuer) enqueued() []*JobExecutionMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*JobExecutionMessage(nil), e.messages...)
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	service, err := NewService(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func testProfile() PartnerProfile {
	return PartnerProfile{
		Name:     "Acme Issuer",
		Endpoint: "https://agent.acme.example",
		CredentialTypes: []CredentialType{
			{CredentialDefinitionID: "cred-def-1", Name: "Employment"},
		},
	}
}

package core

import "context"

// NullCoordinator stands in when the exchange capability is not configured,
// either disabled by config or missing its messaging gateway. Every
// operation answers with an exchange-unsupported error instead of forcing
// callers to nil-check the capability.
type NullCoordinator struct{}

var _ ExchangeCoordinator = NullCoordinator{}

func (NullCoordinator) SendCredentialRequest(context.Context, string, string) (CredentialExchange, error) {
	return CredentialExchange{}, ExchangeUnsupportedError("send_credential_request")
}

func (NullCoordinator) OnCredentialEvent(context.Context, string, ExchangeEvent) error {
	return ExchangeUnsupportedError("on_credential_event")
}

func (NullCoordinator) GetPartnerCredDefs(context.Context, string) ([]CredentialType, error) {
	return nil, ExchangeUnsupportedError("get_partner_cred_defs")
}

func (NullCoordinator) ListPartnerCredentialExchanges(context.Context, string) ([]CredentialExchange, error) {
	return nil, ExchangeUnsupportedError("list_partner_credential_exchanges")
}

func (NullCoordinator) SendPresentProofRequest(context.Context, string, string) (ProofExchange, error) {
	return ProofExchange{}, ExchangeUnsupportedError("send_present_proof_request")
}

func (NullCoordinator) OnProofEvent(context.Context, string, ExchangeEvent) error {
	return ExchangeUnsupportedError("on_proof_event")
}

func (NullCoordinator) ListPartnerProofs(context.Context, string) ([]ProofExchange, error) {
	return nil, ExchangeUnsupportedError("list_partner_proofs")
}

func (NullCoordinator) GetPartnerProofByID(context.Context, string) (ProofExchange, error) {
	return ProofExchange{}, ExchangeUnsupportedError("get_partner_proof_by_id")
}

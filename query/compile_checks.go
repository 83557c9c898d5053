package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goident/partneragent/core"
)

var (
	_ gocmd.Querier[LookupPartnerMessage, core.Partner]                          = (*LookupPartnerQuery)(nil)
	_ gocmd.Querier[GetPartnerMessage, core.Partner]                             = (*GetPartnerQuery)(nil)
	_ gocmd.Querier[ListPartnersMessage, []core.Partner]                         = (*ListPartnersQuery)(nil)
	_ gocmd.Querier[PartnerCredDefsMessage, []core.CredentialType]               = (*PartnerCredDefsQuery)(nil)
	_ gocmd.Querier[ListCredentialExchangesMessage, []core.CredentialExchange]   = (*ListCredentialExchangesQuery)(nil)
	_ gocmd.Querier[ListProofExchangesMessage, []core.ProofExchange]             = (*ListProofExchangesQuery)(nil)
	_ gocmd.Querier[GetProofExchangeMessage, core.ProofExchange]                 = (*GetProofExchangeQuery)(nil)
)

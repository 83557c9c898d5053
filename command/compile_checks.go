package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AddPartnerMessage]           = (*AddPartnerCommand)(nil)
	_ gocmd.Commander[RemovePartnerMessage]        = (*RemovePartnerCommand)(nil)
	_ gocmd.Commander[RefreshPartnerMessage]       = (*RefreshPartnerCommand)(nil)
	_ gocmd.Commander[RefreshStalePartnersMessage] = (*RefreshStalePartnersCommand)(nil)
	_ gocmd.Commander[RequestCredentialMessage]    = (*RequestCredentialCommand)(nil)
	_ gocmd.Commander[RequestProofMessage]         = (*RequestProofCommand)(nil)
)

package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func partnerHandlers() repository.ModelHandlers[*partnerRecord] {
	return repository.ModelHandlers[*partnerRecord]{
		NewRecord: func() *partnerRecord {
			return &partnerRecord{}
		},
		GetID: func(record *partnerRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *partnerRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *partnerRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func credentialExchangeHandlers() repository.ModelHandlers[*credentialExchangeRecord] {
	return repository.ModelHandlers[*credentialExchangeRecord]{
		NewRecord: func() *credentialExchangeRecord {
			return &credentialExchangeRecord{}
		},
		GetID: func(record *credentialExchangeRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *credentialExchangeRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *credentialExchangeRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func proofExchangeHandlers() repository.ModelHandlers[*proofExchangeRecord] {
	return repository.ModelHandlers[*proofExchangeRecord]{
		NewRecord: func() *proofExchangeRecord {
			return &proofExchangeRecord{}
		},
		GetID: func(record *proofExchangeRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *proofExchangeRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *proofExchangeRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

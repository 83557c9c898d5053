package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AgentErrorBadInput            = "AGENT_BAD_INPUT"
	AgentErrorDuplicateDid        = "PARTNER_DUPLICATE_DID"
	AgentErrorPartnerNotFound     = "PARTNER_NOT_FOUND"
	AgentErrorLookupFailed        = "PARTNER_LOOKUP_FAILED"
	AgentErrorExchangeConflict    = "EXCHANGE_CONFLICT"
	AgentErrorExchangeNotFound    = "EXCHANGE_NOT_FOUND"
	AgentErrorDispatchFailed      = "EXCHANGE_DISPATCH_FAILED"
	AgentErrorExchangeUnsupported = "EXCHANGE_UNSUPPORTED"
	AgentErrorLockHeld            = "PARTNER_LOCK_HELD"
	AgentErrorInternal            = "AGENT_INTERNAL_ERROR"
)

func agentErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAgentErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "did") && strings.Contains(msg, "already"):
		return newAgentError(err.Error(), goerrors.CategoryConflict, AgentErrorDuplicateDid)
	case strings.Contains(msg, "partner") && strings.Contains(msg, "not found"):
		return newAgentError(err.Error(), goerrors.CategoryNotFound, AgentErrorPartnerNotFound)
	case strings.Contains(msg, "lookup") || strings.Contains(msg, "resolve"):
		return newAgentError(err.Error(), goerrors.CategoryOperation, AgentErrorLookupFailed)
	case strings.Contains(msg, "dispatch") || strings.Contains(msg, "gateway"):
		return newAgentError(err.Error(), goerrors.CategoryOperation, AgentErrorDispatchFailed)
	case strings.Contains(msg, "lock already held"):
		return newAgentError(err.Error(), goerrors.CategoryConflict, AgentErrorLockHeld)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newAgentError(err.Error(), goerrors.CategoryBadInput, AgentErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAgentErrorEnvelope(mapped)
}

func newAgentError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAgentErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAgentErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = agentHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAgentTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAgentTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AgentErrorBadInput
	case goerrors.CategoryNotFound:
		return AgentErrorPartnerNotFound
	case goerrors.CategoryConflict:
		return AgentErrorExchangeConflict
	case goerrors.CategoryOperation:
		return AgentErrorLookupFailed
	default:
		return AgentErrorInternal
	}
}

func agentHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DuplicateDidError builds the typed conflict returned when a second
// partner claims an existing did.
func DuplicateDidError(did string) *goerrors.Error {
	return goerrors.New("core: partner did already registered: "+did, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(AgentErrorDuplicateDid).
		WithMetadata(map[string]any{"did": did})
}

// PartnerNotFoundError builds the typed not-found for operations on an
// unknown partner id.
func PartnerNotFoundError(partnerID string) *goerrors.Error {
	return goerrors.New("core: partner not found: "+partnerID, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(AgentErrorPartnerNotFound).
		WithMetadata(map[string]any{"partner_id": partnerID})
}

// LookupError wraps an external profile fetch failure.
func LookupError(did string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "core: profile lookup failed for "+did).
		WithCode(http.StatusBadGateway).
		WithTextCode(AgentErrorLookupFailed).
		WithMetadata(map[string]any{"did": did})
}

// ConflictError reports an already-active exchange for the same
// (partner, document) pair.
func ConflictError(partnerID, documentID, exchangeID string) *goerrors.Error {
	return goerrors.New("core: active credential exchange already exists", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(AgentErrorExchangeConflict).
		WithMetadata(map[string]any{
			"partner_id":  partnerID,
			"document_id": documentID,
			"exchange_id": exchangeID,
		})
}

// DispatchError wraps a messaging-gateway failure on the initiating half of
// an exchange.
func DispatchError(partnerID string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "core: protocol message dispatch failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(AgentErrorDispatchFailed).
		WithMetadata(map[string]any{"partner_id": partnerID})
}

// ExchangeNotFoundError is returned for reads of unknown exchange ids.
func ExchangeNotFoundError(exchangeID string) *goerrors.Error {
	return goerrors.New("core: exchange not found: "+exchangeID, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(AgentErrorExchangeNotFound).
		WithMetadata(map[string]any{"exchange_id": exchangeID})
}

// ExchangeUnsupportedError is the null coordinator's uniform answer when no
// exchange backend is configured.
func ExchangeUnsupportedError(operation string) *goerrors.Error {
	return goerrors.New("core: exchange operations are not configured", goerrors.CategoryOperation).
		WithCode(http.StatusNotImplemented).
		WithTextCode(AgentErrorExchangeUnsupported).
		WithMetadata(map[string]any{"operation": operation})
}

// IsTextCode reports whether err carries the given agent text code.
func IsTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), strings.TrimSpace(textCode))
}

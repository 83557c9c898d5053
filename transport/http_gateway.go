package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goident/partneragent/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPGateway dispatches protocol messages to a partner agent's endpoint.
// The endpoint comes from the partner's stored profile; messages post to
// <endpoint>/exchanges as JSON with the exchange id in the envelope.
type HTTPGateway struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewHTTPGateway(client HTTPDoer) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &HTTPGateway{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (g *HTTPGateway) Dispatch(ctx context.Context, partnerID string, msg core.ProtocolMessage) error {
	if g == nil || g.Client == nil {
		return transportError(
			"transport: gateway requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"partner_id": partnerID},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(msg.ExchangeID) == "" {
		return transportError(
			"transport: exchange id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"partner_id": partnerID},
		)
	}
	endpoint := strings.TrimSpace(msg.Endpoint)
	if endpoint == "" {
		return transportError(
			"transport: partner endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"partner_id": partnerID, "exchange_id": msg.ExchangeID},
		)
	}
	parsedURL, err := url.Parse(endpoint)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid partner endpoint",
			http.StatusBadRequest,
			map[string]any{"partner_id": partnerID, "endpoint": endpoint},
		)
	}

	body, err := json.Marshal(messageEnvelope{
		ExchangeID:             msg.ExchangeID,
		Kind:                   msg.Kind,
		PartnerDID:             msg.PartnerDID,
		DocumentID:             msg.DocumentID,
		CredentialDefinitionID: msg.CredentialDefinitionID,
		Body:                   msg.Body,
	})
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryInternal,
			"transport: encode protocol message",
			http.StatusInternalServerError,
			map[string]any{"partner_id": partnerID, "exchange_id": msg.ExchangeID},
		)
	}

	target := strings.TrimRight(parsedURL.String(), "/") + "/exchanges"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"partner_id": partnerID, "url": target},
		)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range g.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := g.Client.Do(httpReq)
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: deliver protocol message",
			http.StatusBadGateway,
			map[string]any{"partner_id": partnerID, "exchange_id": msg.ExchangeID, "url": target},
		)
	}
	defer httpRes.Body.Close()

	limit := g.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(httpRes.Body, limit)); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: drain response body",
			http.StatusBadGateway,
			map[string]any{"partner_id": partnerID, "status_code": httpRes.StatusCode},
		)
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return transportError(
			fmt.Sprintf("transport: partner agent returned status %d", httpRes.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"partner_id":  partnerID,
				"exchange_id": msg.ExchangeID,
				"status_code": httpRes.StatusCode,
			},
		)
	}
	return nil
}

type messageEnvelope struct {
	ExchangeID             string         `json:"exchange_id"`
	Kind                   string         `json:"kind"`
	PartnerDID             string         `json:"partner_did"`
	DocumentID             string         `json:"document_id,omitempty"`
	CredentialDefinitionID string         `json:"credential_definition_id,omitempty"`
	Body                   map[string]any `json:"body,omitempty"`
}

var _ core.MessagingGateway = (*HTTPGateway)(nil)

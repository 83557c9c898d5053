package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goident/partneragent/core"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
)

var ErrProfileNotFound = errors.New("lookup: profile not found")

// ProfileNotFoundError distinguishes "the resolver answered and knows no
// such did" from transport failures, which stay plain errors.
type ProfileNotFoundError struct {
	DID   string
	Cause error
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil {
		return ErrProfileNotFound.Error()
	}
	message := ErrProfileNotFound.Error()
	if strings.TrimSpace(e.DID) != "" {
		message = fmt.Sprintf("%s: %s", message, e.DID)
	}
	if e.Cause != nil {
		message = message + ": " + e.Cause.Error()
	}
	return message
}

func (e *ProfileNotFoundError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.AgentErrorLookupFailed)
}

func profileNotFound(did string, cause error) error {
	return &ProfileNotFoundError{DID: did, Cause: cause}
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// BaseURL points at the resolver service that serves public profile
	// documents, e.g. https://resolver.example.com.
	BaseURL        string
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

// Client resolves a partner's public profile document over HTTP. Requests
// carry a bounded timeout and responses a bounded size; the client holds no
// state, so calls are idempotent and safe to retry.
type Client struct {
	baseURL        string
	httpClient     HTTPDoer
	requestTimeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("lookup: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}, nil
}

func (c *Client) FetchProfile(ctx context.Context, did string) (core.PartnerProfile, error) {
	if c == nil || c.httpClient == nil {
		return core.PartnerProfile{}, fmt.Errorf("lookup: client is not configured")
	}
	did = strings.TrimSpace(did)
	if err := core.ValidateDID(did); err != nil {
		return core.PartnerProfile{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	endpoint := c.baseURL + "/profiles/" + url.PathEscape(did)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.PartnerProfile{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return core.PartnerProfile{}, fmt.Errorf("lookup: fetch profile for %s: %w", did, err)
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxProfileResponseBytes+1))
	if readErr != nil {
		return core.PartnerProfile{}, fmt.Errorf("lookup: read profile response: %w", readErr)
	}
	if int64(len(body)) > maxProfileResponseBytes {
		return core.PartnerProfile{}, fmt.Errorf("lookup: profile response exceeds %d bytes", maxProfileResponseBytes)
	}
	if res.StatusCode == http.StatusNotFound {
		return core.PartnerProfile{}, profileNotFound(did, nil)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return core.PartnerProfile{}, fmt.Errorf("lookup: resolver returned status %d", res.StatusCode)
	}

	var doc profileDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return core.PartnerProfile{}, fmt.Errorf("lookup: decode profile response: %w", err)
	}
	profile := doc.toProfile()
	if profile.IsZero() {
		return core.PartnerProfile{}, profileNotFound(did, fmt.Errorf("empty profile document"))
	}
	return profile, nil
}

type profileDocument struct {
	Name            string              `json:"name"`
	Label           string              `json:"label"`
	Endpoint        string              `json:"endpoint"`
	URL             string              `json:"url"`
	CredentialTypes []credentialTypeDoc `json:"credential_types"`
}

type credentialTypeDoc struct {
	CredentialDefinitionID string `json:"credential_definition_id"`
	Name                   string `json:"name"`
}

func (d profileDocument) toProfile() core.PartnerProfile {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = strings.TrimSpace(d.Label)
	}
	endpoint := strings.TrimSpace(d.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(d.URL)
	}
	profile := core.PartnerProfile{
		Name:     name,
		Endpoint: endpoint,
	}
	for _, credType := range d.CredentialTypes {
		id := strings.TrimSpace(credType.CredentialDefinitionID)
		if id == "" {
			continue
		}
		profile.CredentialTypes = append(profile.CredentialTypes, core.CredentialType{
			CredentialDefinitionID: id,
			Name:                   strings.TrimSpace(credType.Name),
		})
	}
	return profile
}

var _ core.ProfileLookupClient = (*Client)(nil)

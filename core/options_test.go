package core

import (
	"context"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}

	cfg := DefaultConfig()
	cfg.ServiceName = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected empty service name to be rejected")
	}

	cfg = DefaultConfig()
	cfg.Lookup.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative lookup timeout to be rejected")
	}

	cfg = DefaultConfig()
	cfg.Exchange.DispatchTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative dispatch timeout to be rejected")
	}
}

func TestCfgxConfigProviderAppliesRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"service_name": "edge-agent",
	}})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "edge-agent" {
		t.Fatalf("expected raw value to win, got %q", cfg.ServiceName)
	}
	if cfg.Lookup.Timeout != 10*time.Second {
		t.Fatalf("expected default lookup timeout to survive, got %v", cfg.Lookup.Timeout)
	}
}

func TestGoOptionsResolverLayerPrecedence(t *testing.T) {
	defaults := DefaultConfig()

	loaded := Config{}
	loaded.ServiceName = "from-config"
	loaded.Lookup.Timeout = 5 * time.Second

	runtime := Config{}
	runtime.ServiceName = "from-runtime"

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime layer to win, got %q", resolved.ServiceName)
	}
	if resolved.Lookup.Timeout != 5*time.Second {
		t.Fatalf("expected config layer to override defaults, got %v", resolved.Lookup.Timeout)
	}
	if !resolved.Exchange.Enabled {
		t.Fatalf("expected default exchange settings to survive")
	}
}

func TestNewServiceFallsBackToNullCoordinator(t *testing.T) {
	service := newTestService(t,
		WithPartnerStore(newMemoryPartnerStore()),
		WithProfileLookupClient(&stubLookupClient{}),
	)

	if _, err := service.Exchange().SendCredentialRequest(context.Background(), "p", "d"); !IsTextCode(err, AgentErrorExchangeUnsupported) {
		t.Fatalf("expected null coordinator without a gateway, got %v", err)
	}
}

func TestNewServiceWiresCoordinatorWhenGatewayPresent(t *testing.T) {
	partners := newMemoryPartnerStore()
	service := newTestService(t,
		WithPartnerStore(partners),
		WithExchangeStore(newMemoryExchangeStore()),
		WithProfileLookupClient(&stubLookupClient{profile: testProfile()}),
		WithMessagingGateway(&stubGateway{}),
	)

	partner, err := service.AddPartner(context.Background(), "did:web:partner.example", "acme")
	if err != nil {
		t.Fatalf("add partner: %v", err)
	}
	if _, err := service.Exchange().SendCredentialRequest(context.Background(), partner.ID, "doc-1"); err != nil {
		t.Fatalf("expected live coordinator, got %v", err)
	}
}

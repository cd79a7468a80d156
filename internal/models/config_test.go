package models

import (
	"encoding/json"
	"testing"
)

func TestSessionConfigMerge(t *testing.T) {
	base := SessionConfig{
		AIProvider:         "anthropic",
		Model:              "claude-3-5-haiku-latest",
		CustomInstructions: "be brief",
		Data:               json.RawMessage(`{"a": 1}`),
	}

	// Zero-value patch leaves everything alone.
	got := base.Merge(SessionConfig{})
	if got.AIProvider != "anthropic" || got.CustomInstructions != "be brief" || string(got.Data) != `{"a": 1}` {
		t.Errorf("empty patch changed config: %+v", got)
	}

	// Set fields replace; data is replaced wholesale.
	got = base.Merge(SessionConfig{
		Model:       "claude-3-7-sonnet-latest",
		MaxTokens:   256,
		PageContext: &PageContext{URL: "https://acme.com/pricing"},
		Data:        json.RawMessage(`{"b": 2}`),
	})
	if got.Model != "claude-3-7-sonnet-latest" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d", got.MaxTokens)
	}
	if got.AIProvider != "anthropic" {
		t.Errorf("AIProvider lost: %q", got.AIProvider)
	}
	if string(got.Data) != `{"b": 2}` {
		t.Errorf("Data = %s", got.Data)
	}
	if got.PageContext == nil || got.PageContext.URL != "https://acme.com/pricing" {
		t.Errorf("PageContext = %+v", got.PageContext)
	}
}

func TestParseSessionConfig(t *testing.T) {
	cfg, err := ParseSessionConfig(nil)
	if err != nil {
		t.Fatalf("nil input: %v", err)
	}
	if cfg.AIProvider != "" {
		t.Errorf("zero value expected, got %+v", cfg)
	}

	cfg, err = ParseSessionConfig(json.RawMessage(`{"aiProvider": "openai", "jsonData": {"x": 1}}`))
	if err != nil {
		t.Fatalf("valid input: %v", err)
	}
	if cfg.AIProvider != "openai" || string(cfg.Data) != `{"x": 1}` {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := ParseSessionConfig(json.RawMessage(`{`)); err == nil {
		t.Error("malformed input accepted")
	}
}

func TestParseClientConfig(t *testing.T) {
	cfg, err := ParseClientConfig(json.RawMessage(`{
		"system_prompt": "help",
		"whitelisted_domains": ["acme.com"],
		"branding": {"bot_name": "Acme Bot"}
	}`))
	if err != nil {
		t.Fatalf("ParseClientConfig: %v", err)
	}
	if cfg.SystemPrompt != "help" || len(cfg.WhitelistedDomains) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Branding == nil || cfg.Branding.BotName != "Acme Bot" {
		t.Errorf("branding = %+v", cfg.Branding)
	}
}

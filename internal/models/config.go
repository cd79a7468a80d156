package models

import "encoding/json"

// ClientConfig is the typed form of the per-tenant configuration blob.
type ClientConfig struct {
	// SystemPrompt is prepended to every assembled prompt as custom
	// instructions, unless the session overrides it.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// WhitelistedDomains lists origins allowed to call the widget API.
	// Empty means all origins are allowed.
	WhitelistedDomains []string `json:"whitelisted_domains,omitempty"`
	// AIProvider picks the default provider for this client's sessions.
	AIProvider string `json:"ai_provider,omitempty"`
	// Branding configures the embeddable widget.
	Branding *WidgetBranding `json:"branding,omitempty"`
	// EncryptedProviderKeys holds per-provider API key overrides,
	// AES-GCM encrypted and base64 encoded. Never returned to callers.
	EncryptedProviderKeys map[string]string `json:"encrypted_provider_keys,omitempty"`
}

// WidgetBranding is the visual configuration served to the embed script.
type WidgetBranding struct {
	BotName      string `json:"bot_name,omitempty"`
	Greeting     string `json:"greeting,omitempty"`
	PrimaryColor string `json:"primary_color,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Position     string `json:"position,omitempty"` // "bottom-right" or "bottom-left"
}

// PageContext is metadata about the embedding page, sent by the widget
// with each message.
type PageContext struct {
	URL             string `json:"url,omitempty"`
	Title           string `json:"title,omitempty"`
	Hostname        string `json:"hostname,omitempty"`
	Pathname        string `json:"pathname,omitempty"`
	TextExcerpt     string `json:"textExcerpt,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"` // unix millis, set by the browser
}

// SessionConfig is the typed form of the per-session configuration blob.
// The widget may patch it on every message; patches are merged
// field-wise, with set fields replacing stored ones.
type SessionConfig struct {
	AIProvider         string          `json:"aiProvider,omitempty"`
	Model              string          `json:"model,omitempty"`
	MaxTokens          int             `json:"maxTokens,omitempty"`
	CustomInstructions string          `json:"customInstructions,omitempty"`
	PageContext        *PageContext    `json:"pageContext,omitempty"`
	Data               json.RawMessage `json:"jsonData,omitempty"` // pushed dynamic data
}

// Merge overlays patch onto c and returns the result. Set fields of the
// patch win; zero fields leave the stored value alone. Data is replaced
// wholesale, never merged (matching the structured-data ownership rule).
func (c SessionConfig) Merge(patch SessionConfig) SessionConfig {
	out := c
	if patch.AIProvider != "" {
		out.AIProvider = patch.AIProvider
	}
	if patch.Model != "" {
		out.Model = patch.Model
	}
	if patch.MaxTokens > 0 {
		out.MaxTokens = patch.MaxTokens
	}
	if patch.CustomInstructions != "" {
		out.CustomInstructions = patch.CustomInstructions
	}
	if patch.PageContext != nil {
		out.PageContext = patch.PageContext
	}
	if len(patch.Data) > 0 {
		out.Data = patch.Data
	}
	return out
}

// ParseSessionConfig decodes a stored session config blob, tolerating
// empty input.
func ParseSessionConfig(raw json.RawMessage) (SessionConfig, error) {
	var cfg SessionConfig
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// ParseClientConfig decodes a stored client config blob, tolerating
// empty input.
func ParseClientConfig(raw json.RawMessage) (ClientConfig, error) {
	var cfg ClientConfig
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// Package providers contains the AI backends that turn an assembled
// prompt into a reply. Each backend implements Provider; the Registry
// resolves them by name at request time.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound indicates the requested provider name is not
	// registered.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrMissingAPIKey indicates the provider has no usable credential.
	ErrMissingAPIKey = errors.New("provider api key not configured")
)

// Message is one turn handed to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single generation call.
type Options struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
	// APIKey overrides the provider's configured key (per-tenant keys).
	APIKey string
}

// Response is the common result shape across providers.
type Response struct {
	Text             string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Provider generates chat responses from a list of messages.
type Provider interface {
	// Name returns the registry key, e.g. "anthropic" or "openai".
	Name() string
	// DefaultModel returns the model used when Options.Model is empty.
	DefaultModel() string
	// GenerateResponse sends messages to the backing API and returns
	// the model's reply.
	GenerateResponse(ctx context.Context, messages []Message, opts Options) (*Response, error)
}

// Registry maps provider names to implementations. Safe for concurrent
// use after construction.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any previous one with the same
// name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

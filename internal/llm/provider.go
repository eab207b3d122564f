// Package llm binds conversations to a hosted text-generation backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"threechat/internal/config"
	"threechat/internal/models"
)

var (
	ErrMissingAPIKey  = errors.New("API_KEY environment variable not set")
	ErrNotBound       = errors.New("no chat session is ready yet")
	ErrStreamConsumed = errors.New("response stream already consumed")
)

// SessionConfig is everything a session is seeded with.
type SessionConfig struct {
	SystemInstruction string
	History           []models.ChatMessage
}

// Provider builds conversation sessions against one backend.
type Provider interface {
	Name() string
	Model() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Session is a live conversation context. SendMessageStream yields the
// response text in fragments; the sequence can be ranged over only once.
type Session interface {
	SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error]
}

// NewProviderFromConfig returns the backend selected in cfg. A missing API key
// is not an error here; it surfaces when a session is built.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case config.ProviderOpenRouter, config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.Provider, cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: %s, %s, %s)",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenRouter, config.ProviderOpenAI)
	}
}

// SeedHistory returns the turns a rebuilt session is seeded with. A trailing
// model message that is still streaming is left out so the in-flight turn is
// not submitted twice.
func SeedHistory(messages []models.ChatMessage, inFlight bool) []models.ChatMessage {
	n := len(messages)
	if inFlight && n > 0 && messages[n-1].Role == models.RoleModel {
		n--
	}
	out := make([]models.ChatMessage, n)
	copy(out, messages[:n])
	return out
}

// once makes seq single-use: ranging over it again yields ErrStreamConsumed.
func once(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

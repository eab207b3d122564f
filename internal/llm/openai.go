package llm

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"threechat/internal/config"
	"threechat/internal/models"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "google/gemini-2.5-flash"
	DefaultOpenAIModel     = "gpt-4o-mini"
)

// OpenAIProvider serves any OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenAIProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
}

func NewOpenAIProvider(name, apiKey, model, baseURL string) *OpenAIProvider {
	if name == config.ProviderOpenRouter {
		if baseURL == "" {
			baseURL = OpenRouterBaseURL
		}
		if model == "" {
			model = DefaultOpenRouterModel
		}
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{name: name, apiKey: apiKey, model: model, baseURL: baseURL}
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	if p.baseURL == OpenRouterBaseURL {
		opts = append(opts,
			option.WithHeader("HTTP-Referer", "https://github.com/threechat/threechat"),
			option.WithHeader("X-Title", "threechat"),
		)
	}

	history := make([]openai.ChatCompletionMessageParamUnion, 0, len(cfg.History)+1)
	if cfg.SystemInstruction != "" {
		history = append(history, openai.SystemMessage(cfg.SystemInstruction))
	}
	for _, m := range cfg.History {
		switch m.Role {
		case models.RoleUser:
			history = append(history, openai.UserMessage(m.Content))
		case models.RoleModel:
			history = append(history, openai.AssistantMessage(m.Content))
		}
	}

	return &openAISession{
		client:  openai.NewClient(opts...),
		model:   p.model,
		history: history,
	}, nil
}

type openAISession struct {
	client openai.Client
	model  string

	mu      sync.Mutex
	history []openai.ChatCompletionMessageParamUnion
}

// SendMessageStream streams one turn. The turn joins the session history only
// when the stream completes, matching how genai chats record history.
func (s *openAISession) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return once(func(yield func(string, error) bool) {
		s.mu.Lock()
		messages := append(slices.Clone(s.history), openai.UserMessage(text))
		s.mu.Unlock()

		stream := s.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model:    s.model,
			Messages: messages,
		})
		defer stream.Close()

		var full strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
			return
		}

		s.mu.Lock()
		s.history = append(messages, openai.AssistantMessage(full.String()))
		s.mu.Unlock()
	})
}

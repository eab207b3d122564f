package llm

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"threechat/internal/models"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider talks to the Gemini API through genai chat sessions. The
// client is created on first use so a missing key is reported per bind.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey, model, baseURL string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model, baseURL: baseURL}
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

func (p *GeminiProvider) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	client, err := p.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	history := make([]*genai.Content, 0, len(cfg.History))
	for _, m := range cfg.History {
		history = append(history, genai.NewContentFromText(m.Content, geminiRole(m.Role)))
	}

	gcfg := &genai.GenerateContentConfig{}
	if cfg.SystemInstruction != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}

	chat, err := client.Chats.Create(ctx, p.model, gcfg, history)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return &geminiSession{chat: chat}, nil
}

func geminiRole(r models.Role) genai.Role {
	if r == models.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return once(func(yield func(string, error) bool) {
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				yield("", err)
				return
			}
			fragment := resp.Text()
			if fragment == "" {
				continue
			}
			if !yield(fragment, nil) {
				return
			}
		}
	})
}

// Package persona holds the built-in persona registry.
package persona

import "threechat/internal/models"

const (
	CreativeAssistantID = "creative-assistant"
	CodeWizardID        = "code-wizard"
	SarcasticSageID     = "sarcastic-sage"
)

var registry = []models.Persona{
	{
		ID:                CreativeAssistantID,
		Name:              "Creative Assistant",
		Icon:              "✦",
		SystemInstruction: "You are a friendly and enthusiastic creative assistant. Your goal is to help users brainstorm ideas, write stories, create marketing copy, and explore their creativity. Always be encouraging, imaginative, and provide inspiring suggestions. Use emojis to convey a positive and friendly tone.",
		Color:             models.ColorCreative,
	},
	{
		ID:                CodeWizardID,
		Name:              "Code Wizard",
		Icon:              "</>",
		SystemInstruction: "You are a precise and knowledgeable code wizard. Your expertise spans multiple programming languages, frameworks, and algorithms. Provide clear, efficient, and well-commented code solutions. Explain complex technical concepts simply. When asked for code, format it properly using markdown code blocks. Be direct and focus on technical accuracy.",
		Color:             models.ColorCode,
	},
	{
		ID:                SarcasticSageID,
		Name:              "Sarcastic Sage",
		Icon:              "☯",
		SystemInstruction: "You are a sarcastic and witty sage. You possess great knowledge, but you deliver it with a heavy dose of dry humor, irony, and playful condescension. Your answers should be factually correct but wrapped in a layer of sarcasm. Never be truly mean, but act as if the user's questions are a minor inconvenience in your day. End your responses with a subtly snarky remark.",
		Color:             models.ColorSage,
	},
}

// All returns the personas in display order.
func All() []models.Persona {
	out := make([]models.Persona, len(registry))
	copy(out, registry)
	return out
}

// Default is the persona selected at startup.
func Default() models.Persona {
	return registry[0]
}

func Find(id string) (models.Persona, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p, true
		}
	}
	return models.Persona{}, false
}

// Resolve is Find with a fallback to the default persona for unknown ids.
func Resolve(id string) models.Persona {
	if p, ok := Find(id); ok {
		return p
	}
	return Default()
}

// Index returns the position of id in display order, or -1.
func Index(id string) int {
	for i, p := range registry {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// At returns the persona at display position i, wrapping around.
func At(i int) models.Persona {
	n := len(registry)
	return registry[((i%n)+n)%n]
}

package styles

import (
	"threechat/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a complete color scheme for the application
type Theme struct {
	// Core colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Text colors
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Semantic colors
	Error lipgloss.Color

	// UI element colors
	Border  lipgloss.Color
	Divider lipgloss.Color

	// Persona accents, keyed by color tag
	Creative lipgloss.Color
	Code     lipgloss.Color
	Sage     lipgloss.Color
}

// DarkTheme is the dark mode color scheme
var DarkTheme = Theme{
	Primary:   lipgloss.Color("#818CF8"), // Indigo 400
	Secondary: lipgloss.Color("#22D3EE"), // Cyan 400
	Accent:    lipgloss.Color("#F472B6"), // Pink 400

	TextPrimary:   lipgloss.Color("#F1F5F9"), // Slate 100
	TextSecondary: lipgloss.Color("#94A3B8"), // Slate 400
	TextMuted:     lipgloss.Color("#64748B"), // Slate 500

	Error: lipgloss.Color("#FB7185"), // Rose 400

	Border:  lipgloss.Color("#27272A"), // Zinc 800
	Divider: lipgloss.Color("#333333"),

	Creative: lipgloss.Color("#A78BFA"), // Purple 400
	Code:     lipgloss.Color("#34D399"), // Emerald 400
	Sage:     lipgloss.Color("#FBBF24"), // Amber 400
}

// LightTheme is the light mode color scheme
var LightTheme = Theme{
	Primary:   lipgloss.Color("#4F46E5"), // Indigo 600
	Secondary: lipgloss.Color("#0891B2"), // Cyan 600
	Accent:    lipgloss.Color("#DB2777"), // Pink 600

	TextPrimary:   lipgloss.Color("#18181B"), // Zinc 900
	TextSecondary: lipgloss.Color("#52525B"), // Zinc 600
	TextMuted:     lipgloss.Color("#A1A1AA"), // Zinc 400

	Error: lipgloss.Color("#EF4444"), // Red 500

	Border:  lipgloss.Color("#E4E4E7"), // Zinc 200
	Divider: lipgloss.Color("#D4D4D8"), // Zinc 300

	Creative: lipgloss.Color("#7C3AED"), // Violet 600
	Code:     lipgloss.Color("#059669"), // Emerald 600
	Sage:     lipgloss.Color("#D97706"), // Amber 600
}

// CurrentTheme holds the active theme (set at runtime based on terminal)
var CurrentTheme = DarkTheme

// PersonaColor returns the accent for a persona color tag
func PersonaColor(tag models.ColorTag) lipgloss.Color {
	switch tag {
	case models.ColorCreative:
		return CurrentTheme.Creative
	case models.ColorCode:
		return CurrentTheme.Code
	case models.ColorSage:
		return CurrentTheme.Sage
	default:
		return CurrentTheme.Primary
	}
}

// InitTheme sets the current theme based on terminal background
func InitTheme() {
	if lipgloss.HasDarkBackground() {
		CurrentTheme = DarkTheme
	} else {
		CurrentTheme = LightTheme
	}
}

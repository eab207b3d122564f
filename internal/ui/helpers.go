package ui

import (
	"fmt"
	"strings"

	"threechat/internal/models"
	"threechat/internal/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

// SingleLine collapses whitespace so a title fits on one row.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

// TruncateWidth cuts s to at most max terminal cells, ending in "…" when cut.
func TruncateWidth(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(max(width-4, 1)).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(p models.Persona, content string) string {
	color := styles.PersonaColor(p.Color)
	label := styles.AiLabelStyle.Background(color).Render(p.Icon + " " + strings.ToUpper(p.Name))
	msg := styles.AiMsgStyle.BorderForeground(color).Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatTyping is the indicator shown while a reply has not started yet.
func FormatTyping(p models.Persona, spinnerView string) string {
	color := styles.PersonaColor(p.Color)
	label := styles.AiLabelStyle.Background(color).Render(p.Icon + " " + strings.ToUpper(p.Name))
	status := lipgloss.NewStyle().Foreground(styles.HintColor).Render(" typing...")
	return fmt.Sprintf("%s\n%s%s", label, spinnerView, status)
}

// renderMarkdown renders model output through glamour when a renderer is set.
func (m *Model) renderMarkdown(content string) string {
	if m.Renderer == nil {
		return content
	}
	rendered, err := m.Renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

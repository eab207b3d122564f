package ui

import (
	"fmt"
	"strings"

	"threechat/internal/llm"
	"threechat/internal/models"
	"threechat/internal/persona"
	"threechat/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) RenderSidebar() string {
	threads := m.Store.Threads()
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Chats (%d)", len(threads)))

	var body string
	if len(threads) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No chats yet"))
	} else {
		activeID := m.Store.ActiveThreadID()
		items := make([]string, 0, len(threads))
		for i, t := range threads {
			isSelected := i == m.SidebarSelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			p := persona.Resolve(t.PersonaID)
			icon := lipgloss.NewStyle().Foreground(styles.PersonaColor(p.Color)).Render(p.Icon)

			marker := " "
			if t.ID == activeID {
				marker = "●"
			}

			available := styles.ContentWidth - 2 - len(cursor) - lipgloss.Width(icon) - 4
			label := TruncateWidth(SingleLine(t.Title), min(available, SidebarTitleWidth))
			itemContent := fmt.Sprintf("%s%s %s %s", cursor, marker, icon, label)
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: open • Ctrl+N: new chat • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderPersonaSelector() string {
	title := styles.ModalTitleStyle.Render("Select Persona")

	var items []string
	for i, p := range persona.All() {
		isSelected := i == m.PersonaSelectedIdx
		isCurrent := p.ID == m.SelectedPersonaID

		displayName := p.Icon + " " + p.Name
		if isCurrent {
			displayName = "● " + displayName
		} else {
			displayName = "  " + displayName
		}

		var styledItem string
		if isSelected {
			styledItem = styles.ModalSelectedStyle.Copy().
				Width(styles.ContentWidth).
				Render(displayName)
		} else {
			styledItem = styles.ModalItemStyle.Copy().
				Width(styles.ContentWidth).
				Foreground(styles.PersonaColor(p.Color)).
				Render(displayName)
		}
		items = append(items, styledItem)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...))
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: select and start a new chat • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit Application"},
		{"Enter", "Send Message"},
		{"Alt+Enter", "Insert Newline"},
		{"Ctrl+N", "New Chat"},
		{"Ctrl+H", "Browse Chats"},
		{"Ctrl+P", "Select Persona"},
		{"Ctrl+S", "View Shortcuts (this menu)"},
		{"/new", "New Chat (in input)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderHeader() string {
	p := m.ViewPersona()
	color := styles.PersonaColor(p.Color)

	title := styles.TitleStyle.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Render("3CHAT")
	who := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(p.Icon + " " + p.Name)

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", who)
}

func (m *Model) RenderBanner() string {
	if m.Banner == "" {
		return ""
	}
	width := max(min(m.WindowWidth-4, MaxChatWidth), 10)
	return styles.BannerStyle.Width(width).Render(TruncateWidth(SingleLine(m.Banner), width-2))
}

func (m *Model) RenderBottomBar() string {
	p := m.ViewPersona()
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.PersonaColor(p.Color)).
		Padding(0, 1).
		Render(p.Icon + " " + strings.ToUpper(p.Name))

	var providerName, modelName string
	status := ""
	if m.Binder != nil {
		providerName = m.Binder.Provider().Name()
		modelName = TruncateWidth(m.Binder.Provider().Model(), 25)
		switch m.Binder.State() {
		case llm.StateBinding, llm.StateUnbound:
			status = "connecting..."
		case llm.StateError:
			status = "offline"
		}
	}
	provider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(providerName)
	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(modelName)

	statusColor := styles.CurrentTheme.TextMuted
	if status == "offline" {
		statusColor = styles.CurrentTheme.Error
	}
	statusText := lipgloss.NewStyle().Foreground(statusColor).Render(status)

	chats := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		Render(fmt.Sprintf("Chats: %d", len(m.Store.Threads())))

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", provider, "  ", model)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, statusText, "  ", chats, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2 // -2 for padding
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.CurrentTheme.Divider).
		Padding(0, 1).
		Render(bar)
}

func GetWelcomeScreen(width, height int, p models.Persona) string {
	art := `
 ██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
 ╚════██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
  █████╔╝██║     ███████║███████║   ██║
  ╚═══██╗██║     ██╔══██║██╔══██║   ██║
 ██████╔╝╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`
	subtitle := fmt.Sprintf("You are chatting with %s %s. Type a message to start.", p.Icon, p.Name)

	styledArt := styles.WelcomeArtStyle.Foreground(styles.PersonaColor(p.Color)).Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	p := m.ViewPersona()
	thread, ok := m.Store.ActiveThread()
	if !ok || len(thread.Messages) == 0 {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height, p))
		return
	}

	parts := make([]string, 0, len(thread.Messages)+1)
	for i, msg := range thread.Messages {
		switch msg.Role {
		case models.RoleUser:
			parts = append(parts, FormatUserMessage(msg.Content, m.Viewport.Width, i == 0))
		case models.RoleModel:
			parts = append(parts, FormatAIMessage(p, m.renderMarkdown(msg.Content)))
		}
	}
	if last, _ := thread.LastMessage(); m.Loading && last.Role == models.RoleUser {
		parts = append(parts, FormatTyping(p, m.Spinner.View()))
	}

	m.Viewport.SetContent(strings.Join(parts, "\n\n"))
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.
		BorderForeground(styles.PersonaColor(m.ViewPersona().Color)).
		Width(inputWidth).
		Render(m.TextInput.View())

	sections := []string{m.RenderHeader(), ""}
	if banner := m.RenderBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, m.Viewport.View(), "", inputBox)

	chatContent := lipgloss.JoinVertical(lipgloss.Center, sections...)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar())

	var modal string
	switch {
	case m.SidebarOpen:
		modal = m.RenderSidebar()
	case m.PersonaSelectorOpen:
		modal = m.RenderPersonaSelector()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}

	modal = styles.ModalStyle.Width(ModalWidth).Render(modal)
	return lipgloss.Place(
		m.WindowWidth,
		m.WindowHeight,
		lipgloss.Center,
		lipgloss.Center,
		modal,
	)
}

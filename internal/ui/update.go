package ui

import (
	"context"
	"errors"
	"log"
	"strings"

	"threechat/internal/llm"
	"threechat/internal/models"
	"threechat/internal/persona"
	"threechat/internal/stream"
	"threechat/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Loading {
			m.UpdateViewport()
		}
		return m, spCmd

	case tea.KeyMsg:
		if m.SidebarOpen {
			threads := m.Store.Threads()
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "ctrl+h":
				m.SidebarOpen = false
				return m, nil
			case "ctrl+n":
				m.ResetSession()
				return m, nil
			case "up", "k":
				if len(threads) == 0 {
					return m, nil
				}
				m.SidebarSelectedIdx--
				if m.SidebarSelectedIdx < 0 {
					m.SidebarSelectedIdx = len(threads) - 1
				}
				return m, nil
			case "down", "j":
				if len(threads) == 0 {
					return m, nil
				}
				m.SidebarSelectedIdx++
				if m.SidebarSelectedIdx >= len(threads) {
					m.SidebarSelectedIdx = 0
				}
				return m, nil
			case "enter":
				if len(threads) == 0 || m.SidebarSelectedIdx >= len(threads) {
					return m, nil
				}
				if err := m.Store.SelectThread(threads[m.SidebarSelectedIdx].ID); err != nil {
					return m, func() tea.Msg { return ErrMsg(err) }
				}
				m.SidebarOpen = false
				return m, nil
			}
			return m, nil
		}

		if m.PersonaSelectorOpen {
			n := len(persona.All())
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "ctrl+p":
				m.PersonaSelectorOpen = false
				return m, nil
			case "up", "k":
				m.PersonaSelectedIdx = (m.PersonaSelectedIdx - 1 + n) % n
				return m, nil
			case "down", "j":
				m.PersonaSelectedIdx = (m.PersonaSelectedIdx + 1) % n
				return m, nil
			case "enter":
				m.SelectPersona(persona.At(m.PersonaSelectedIdx).ID)
				return m, nil
			}
			return m, nil
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			m.ResetSession()
			return m, nil

		case tea.KeyCtrlP:
			m.PersonaSelectorOpen = true
			m.SidebarOpen = false
			m.ShortcutsOpen = false
			m.PersonaSelectedIdx = max(persona.Index(m.SelectedPersonaID), 0)
			return m, nil

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.PersonaSelectorOpen = false
			m.SidebarOpen = false
			return m, nil

		case tea.KeyCtrlH:
			m.PersonaSelectorOpen = false
			m.SidebarOpen = true
			m.ShortcutsOpen = false
			m.SidebarSelectedIdx = 0
			activeID := m.Store.ActiveThreadID()
			for i, t := range m.Store.Threads() {
				if t.ID == activeID {
					m.SidebarSelectedIdx = i
					break
				}
			}
			return m, nil

		case tea.KeyEnter:
			if m.Loading {
				return m, nil
			}
			input := m.TextInput.Value()
			if strings.TrimSpace(input) == "" {
				return m, nil
			}

			if input == "/new" || input == "/clear" {
				m.ResetSession()
				return m, nil
			}

			return m, m.SendMessage(input)
		}

	case storeChangedMsg:
		if n := len(m.Store.Threads()); m.SidebarSelectedIdx >= n {
			m.SidebarSelectedIdx = max(n-1, 0)
		}
		m.UpdateViewport()
		return m, m.syncSession()

	case boundMsg:
		if msg.Err != nil && msg.Key == m.Binder.Key() {
			m.Banner = stream.BannerText(msg.Err)
		}
		return m, nil

	case streamDoneMsg:
		m.Loading = false
		m.Binder.Invalidate()
		if msg.Err != nil {
			var se *stream.StreamError
			if errors.As(msg.Err, &se) {
				m.Banner = stream.BannerText(se.Err)
			} else {
				log.Printf("ui: response for thread %s: %v", msg.ThreadID, msg.Err)
				m.Banner = stream.BannerText(msg.Err)
			}
		}
		m.UpdateViewport()
		return m, m.syncSession()

	case ErrMsg:
		log.Printf("ui: %v", msg)
		m.Banner = stream.BannerText(msg)
		m.UpdateViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		// Update modal dimensions
		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		chatWidth := min(msg.Width-2, MaxChatWidth)
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, nil
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter out terminal background color queries and cursor reference codes that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 6
	if m.Banner != "" {
		reserved++
	}
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// ViewPersona is the persona the screen is rendered for: the active thread's,
// or the selected one when no thread is active.
func (m *Model) ViewPersona() models.Persona {
	if t, ok := m.Store.ActiveThread(); ok {
		return persona.Resolve(t.PersonaID)
	}
	return persona.Resolve(m.SelectedPersonaID)
}

func (m *Model) bindKey() llm.BindKey {
	return llm.BindKey{
		ThreadID:          m.Store.ActiveThreadID(),
		SystemInstruction: m.ViewPersona().SystemInstruction,
	}
}

// syncSession rebinds the model session when the active thread or persona
// instruction no longer matches the bound one.
func (m *Model) syncSession() tea.Cmd {
	if m.Binder == nil {
		return nil
	}
	key := m.bindKey()
	if !m.Binder.NeedsBind(key) {
		return nil
	}

	var history []models.ChatMessage
	if t, ok := m.Store.Thread(key.ThreadID); ok {
		history = llm.SeedHistory(t.Messages, m.Store.InFlight(t.ID))
	}

	binder := m.Binder
	return func() tea.Msg {
		err := binder.Bind(context.Background(), key, history)
		return boundMsg{Key: key, Err: err}
	}
}

// SelectPersona switches the persona used for new chats and starts one.
func (m *Model) SelectPersona(id string) {
	p := persona.Resolve(id)
	m.SelectedPersonaID = p.ID
	m.PersonaSelectedIdx = persona.Index(p.ID)
	m.PersonaSelectorOpen = false
	m.ResetSession()
}

func (m *Model) ResetSession() {
	m.Store.StartNewThread()
	m.SidebarOpen = false
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.updateInputLayout()
	m.UpdateViewport()
}

// SendMessage records the user turn and starts streaming the response into
// the thread it belongs to. Nothing is recorded while the session for the
// current thread is still being built.
func (m *Model) SendMessage(input string) tea.Cmd {
	if m.Binder.NeedsBind(m.bindKey()) {
		return m.syncSession()
	}
	sess, bindErr := m.Binder.Session()
	if errors.Is(bindErr, llm.ErrNotBound) {
		return nil
	}

	newThread := m.Store.ActiveThreadID() == ""
	threadID, err := m.Store.AppendUserMessage(m.SelectedPersonaID, input)
	if err != nil {
		return func() tea.Msg { return ErrMsg(err) }
	}
	m.Banner = ""
	m.TextInput.Reset()
	m.updateInputLayout()

	if bindErr != nil {
		// No usable session: the bind failure answers the turn.
		m.Banner = stream.BannerText(bindErr)
		if err := m.Store.AppendErrorAsModelMessage(threadID, stream.ErrorMessage(bindErr)); err != nil {
			log.Printf("ui: record bind failure for thread %s: %v", threadID, err)
		}
		m.UpdateViewport()
		return nil
	}

	if newThread {
		m.Binder.Adopt(threadID)
	}
	m.Loading = true
	m.UpdateViewport()

	assembler := m.Assembler
	return tea.Batch(func() tea.Msg {
		content, err := assembler.Run(threadID, sess.SendMessageStream(context.Background(), input))
		return streamDoneMsg{ThreadID: threadID, Content: content, Err: err}
	}, m.Spinner.Tick)
}

package ui

import (
	"threechat/internal/config"
	"threechat/internal/llm"
	"threechat/internal/persona"
	"threechat/internal/store"
	"threechat/internal/stream"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func InitialModel(cfg *config.Config, st *store.Store, binder *llm.Binder) Model {
	ti := textarea.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	vp := viewport.New(60, 15)

	selected := persona.Default().ID
	if cfg != nil {
		selected = persona.Resolve(cfg.DefaultPersona).ID
	}

	return Model{
		TextInput:          ti,
		Viewport:           vp,
		Spinner:            sp,
		Store:              st,
		Binder:             binder,
		Assembler:          stream.NewAssembler(st),
		SelectedPersonaID:  selected,
		PersonaSelectedIdx: persona.Index(selected),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
		m.syncSession(),
	)
}

// NewProgram wires the model to a bubbletea program. Store mutations, including
// the ones made by the assembler goroutine, reach Update as storeChangedMsg.
func NewProgram(cfg *config.Config, st *store.Store, binder *llm.Binder) *tea.Program {
	m := InitialModel(cfg, st, binder)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	m.unsubscribe = st.Subscribe(func() {
		// Send blocks until the event loop reads it, and the loop itself
		// mutates the store.
		go p.Send(storeChangedMsg{})
	})
	return p
}

// Close detaches the model from the store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

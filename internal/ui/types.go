package ui

import (
	"threechat/internal/llm"
	"threechat/internal/store"
	"threechat/internal/stream"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	MaxChatWidth = 100

	SidebarTitleWidth = 40
)

var ModalWidth = 60

type ErrMsg error

// storeChangedMsg is sent by the store subscriber after every mutation.
type storeChangedMsg struct{}

// boundMsg reports the outcome of a session bind.
type boundMsg struct {
	Key llm.BindKey
	Err error
}

// streamDoneMsg ends one assembled response.
type streamDoneMsg struct {
	ThreadID string
	Content  string
	Err      error
}

type Model struct {
	Viewport  viewport.Model
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *glamour.TermRenderer
	Program   *tea.Program

	Store     *store.Store
	Binder    *llm.Binder
	Assembler *stream.Assembler

	// SelectedPersonaID is used for new chats and whenever no thread is active
	SelectedPersonaID string

	Loading bool
	// Banner is the transient error line; cleared by the next send
	Banner string

	WindowWidth  int
	WindowHeight int

	SidebarOpen        bool
	SidebarSelectedIdx int

	PersonaSelectorOpen bool
	PersonaSelectedIdx  int

	ShortcutsOpen bool

	unsubscribe func()
}

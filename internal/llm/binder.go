package llm

import (
	"context"
	"log"
	"sync"

	"threechat/internal/models"
)

type BindState int

const (
	StateUnbound BindState = iota
	StateBinding
	StateBound
	StateError
)

func (s BindState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBinding:
		return "binding"
	case StateBound:
		return "bound"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// BindKey identifies what a session was built for. ThreadID is "" for a chat
// that has not been started yet.
type BindKey struct {
	ThreadID          string
	SystemInstruction string
}

// Binder keeps one session bound to the active (thread, persona instruction)
// pair and rebuilds it whenever that pair changes.
type Binder struct {
	provider Provider

	mu      sync.Mutex
	state   BindState
	key     BindKey
	session Session
	err     error
	gen     uint64
	stale   bool
}

func NewBinder(provider Provider) *Binder {
	return &Binder{provider: provider}
}

func (b *Binder) Provider() Provider { return b.provider }

func (b *Binder) State() BindState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Binder) Key() BindKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// Err returns the error recorded by the last failed bind.
func (b *Binder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// NeedsBind reports whether the session must be rebuilt for key.
func (b *Binder) NeedsBind(key BindKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateUnbound || b.stale || b.key != key
}

// Bind builds a fresh session for key seeded with history. A bind started
// later supersedes this one: its result is then dropped. The returned error is
// also kept for display until the next bind.
func (b *Binder) Bind(ctx context.Context, key BindKey, history []models.ChatMessage) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.state = StateBinding
	b.key = key
	b.session = nil
	b.err = nil
	b.stale = false
	b.mu.Unlock()

	sess, err := b.provider.NewSession(ctx, SessionConfig{
		SystemInstruction: key.SystemInstruction,
		History:           history,
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return nil
	}
	if err != nil {
		log.Printf("llm: bind %s for thread %q failed: %v", b.provider.Name(), key.ThreadID, err)
		b.state = StateError
		b.err = err
		return err
	}
	b.state = StateBound
	b.session = sess
	return nil
}

// Session returns the bound session, the bind failure, or ErrNotBound.
func (b *Binder) Session() (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateBound:
		return b.session, nil
	case StateError:
		return nil, b.err
	default:
		return nil, ErrNotBound
	}
}

// Adopt re-keys the live session to threadID. Used when sending the first
// message of a new chat creates the thread: the session already carries that
// turn, so rebuilding it would submit the turn twice.
func (b *Binder) Adopt(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key.ThreadID = threadID
}

// Invalidate forces the next NeedsBind to report true.
func (b *Binder) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stale = true
}

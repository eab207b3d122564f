package llm

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"threechat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	cfg SessionConfig
}

func (s *fakeSession) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("echo: "+text, nil)
	}
}

type fakeProvider struct {
	mu      sync.Mutex
	configs []SessionConfig
	err     error
	// hook runs inside NewSession before it returns
	hook func()
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

func (p *fakeProvider) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if p.hook != nil {
		p.hook()
	}
	p.mu.Lock()
	p.configs = append(p.configs, cfg)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &fakeSession{cfg: cfg}, nil
}

func TestBinder_InitialState(t *testing.T) {
	b := NewBinder(&fakeProvider{})

	assert.Equal(t, StateUnbound, b.State())
	assert.True(t, b.NeedsBind(BindKey{}))
	_, err := b.Session()
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestBinder_BindSuccess(t *testing.T) {
	p := &fakeProvider{}
	b := NewBinder(p)
	key := BindKey{ThreadID: "t1", SystemInstruction: "be nice"}
	history := []models.ChatMessage{{Role: models.RoleUser, Content: "Hi"}, {Role: models.RoleModel, Content: "Hello"}}

	require.NoError(t, b.Bind(context.Background(), key, history))

	assert.Equal(t, StateBound, b.State())
	assert.False(t, b.NeedsBind(key))
	assert.True(t, b.NeedsBind(BindKey{ThreadID: "t2", SystemInstruction: "be nice"}))
	assert.True(t, b.NeedsBind(BindKey{ThreadID: "t1", SystemInstruction: "be rude"}))

	sess, err := b.Session()
	require.NoError(t, err)
	assert.Equal(t, "be nice", sess.(*fakeSession).cfg.SystemInstruction)
	assert.Equal(t, history, sess.(*fakeSession).cfg.History)
}

func TestBinder_BindFailureRejectsSends(t *testing.T) {
	b := NewBinder(&fakeProvider{err: ErrMissingAPIKey})

	err := b.Bind(context.Background(), BindKey{SystemInstruction: "x"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, StateError, b.State())
	assert.ErrorIs(t, b.Err(), ErrMissingAPIKey)

	_, err = b.Session()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestBinder_RebindAfterError(t *testing.T) {
	p := &fakeProvider{err: errors.New("offline")}
	b := NewBinder(p)
	require.Error(t, b.Bind(context.Background(), BindKey{ThreadID: "a"}, nil))

	p.err = nil
	require.NoError(t, b.Bind(context.Background(), BindKey{ThreadID: "b"}, nil))
	assert.Equal(t, StateBound, b.State())
	assert.NoError(t, b.Err())
}

func TestBinder_StaleBindIsDropped(t *testing.T) {
	p := &fakeProvider{}
	b := NewBinder(p)

	// While the first bind is constructing, a newer bind for another key
	// starts and completes.
	p.hook = func() {
		p.hook = nil
		require.NoError(t, b.Bind(context.Background(), BindKey{ThreadID: "newer"}, nil))
	}
	require.NoError(t, b.Bind(context.Background(), BindKey{ThreadID: "older"}, nil))

	assert.Equal(t, StateBound, b.State())
	assert.Equal(t, "newer", b.Key().ThreadID)
}

func TestBinder_PersonaChangeWithoutThread(t *testing.T) {
	p := &fakeProvider{}
	b := NewBinder(p)

	require.NoError(t, b.Bind(context.Background(), BindKey{SystemInstruction: "creative"}, nil))
	next := BindKey{SystemInstruction: "code"}
	require.True(t, b.NeedsBind(next))
	require.NoError(t, b.Bind(context.Background(), next, nil))

	require.Len(t, p.configs, 2)
	assert.Equal(t, "code", p.configs[1].SystemInstruction)
}

func TestBinder_AdoptAndInvalidate(t *testing.T) {
	p := &fakeProvider{}
	b := NewBinder(p)
	require.NoError(t, b.Bind(context.Background(), BindKey{SystemInstruction: "s"}, nil))

	b.Adopt("t1")
	assert.False(t, b.NeedsBind(BindKey{ThreadID: "t1", SystemInstruction: "s"}))
	assert.Len(t, p.configs, 1)

	b.Invalidate()
	assert.True(t, b.NeedsBind(BindKey{ThreadID: "t1", SystemInstruction: "s"}))
	require.NoError(t, b.Bind(context.Background(), BindKey{ThreadID: "t1", SystemInstruction: "s"}, nil))
	assert.False(t, b.NeedsBind(BindKey{ThreadID: "t1", SystemInstruction: "s"}))
}

func TestBindStateString(t *testing.T) {
	assert.Equal(t, "unbound", StateUnbound.String())
	assert.Equal(t, "binding", StateBinding.String())
	assert.Equal(t, "bound", StateBound.String())
	assert.Equal(t, "error", StateError.String())
}

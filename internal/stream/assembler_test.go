package stream

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"threechat/internal/models"
	"threechat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragments(parts []string, failAfter int, failure error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i, p := range parts {
			if failAfter == i && failure != nil {
				yield("", failure)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if failAfter == len(parts) && failure != nil {
			yield("", failure)
		}
	}
}

func newThread(t *testing.T) (*store.Store, string) {
	t.Helper()
	s := store.New(nil)
	id, err := s.AppendUserMessage("creative-assistant", "Hi")
	require.NoError(t, err)
	return s, id
}

func TestRun_ConcatenatesFragments(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{"single", []string{"Hello"}},
		{"two", []string{"Hello", " there"}},
		{"many", []string{"a", "b", "c", "d", "e", "f"}},
		{"empty fragment", []string{"x", "", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, id := newThread(t)
			updates := 0
			s.Subscribe(func() { updates++ })

			full, err := NewAssembler(s).Run(id, fragments(tt.parts, -1, nil))
			require.NoError(t, err)

			want := strings.Join(tt.parts, "")
			assert.Equal(t, want, full)
			thread, _ := s.Thread(id)
			require.Len(t, thread.Messages, 2, "exactly one model message per turn")
			assert.Equal(t, models.ChatMessage{Role: models.RoleModel, Content: want}, thread.Messages[1])
			assert.False(t, s.InFlight(id))
			// one update per fragment plus the completion
			assert.Equal(t, len(tt.parts)+1, updates)
		})
	}
}

func TestRun_ScenarioFromEmptyStore(t *testing.T) {
	s := store.New(nil)
	id, err := s.AppendUserMessage("creative-assistant", "Hi")
	require.NoError(t, err)

	_, err = NewAssembler(s).Run(id, fragments([]string{"Hello", " there"}, -1, nil))
	require.NoError(t, err)

	thread, _ := s.Thread(id)
	assert.Equal(t, "Hi", thread.Title)
	assert.Equal(t, "creative-assistant", thread.PersonaID)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleModel, Content: "Hello there"},
	}, thread.Messages)
}

func TestRun_FailureAfterFragmentsReplacesPartial(t *testing.T) {
	s, id := newThread(t)
	boom := errors.New("quota exceeded")

	full, err := NewAssembler(s).Run(id, fragments([]string{"Hel", "lo"}, 2, boom))

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Hello", full)

	thread, _ := s.Thread(id)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "Sorry, I ran into an error: quota exceeded", thread.Messages[1].Content)
	assert.Equal(t, "Error: quota exceeded", BannerText(err))
}

func TestRun_FailureBeforeFirstFragment(t *testing.T) {
	s, id := newThread(t)

	_, err := NewAssembler(s).Run(id, fragments(nil, 0, errors.New("no credentials")))
	require.Error(t, err)

	thread, _ := s.Thread(id)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, models.RoleModel, thread.Messages[1].Role)
	assert.Equal(t, "Sorry, I ran into an error: no credentials", thread.Messages[1].Content)
}

func TestRun_EmptySequence(t *testing.T) {
	s, id := newThread(t)

	full, err := NewAssembler(s).Run(id, fragments(nil, -1, nil))
	require.NoError(t, err)
	assert.Empty(t, full)

	thread, _ := s.Thread(id)
	assert.Len(t, thread.Messages, 1)
}

func TestRun_OneAssemblyPerThread(t *testing.T) {
	s, id := newThread(t)
	a := NewAssembler(s)

	var inner error
	outer := func(yield func(string, error) bool) {
		assert.True(t, a.Busy(id))
		_, inner = a.Run(id, fragments([]string{"nested"}, -1, nil))
		yield("outer", nil)
	}

	full, err := a.Run(id, outer)
	require.NoError(t, err)
	assert.Equal(t, "outer", full)
	assert.ErrorIs(t, inner, ErrAssemblyInProgress)
	assert.False(t, a.Busy(id))

	thread, _ := s.Thread(id)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "outer", thread.Messages[1].Content)
}

func TestRun_UnknownThread(t *testing.T) {
	s := store.New(nil)

	_, err := NewAssembler(s).Run("missing", fragments([]string{"x"}, -1, nil))
	assert.ErrorIs(t, err, store.ErrThreadNotFound)

	var streamErr *StreamError
	assert.False(t, errors.As(err, &streamErr))
}

func TestErrorMessageUnknown(t *testing.T) {
	assert.Equal(t, "Sorry, I ran into an error: An unknown error occurred.", ErrorMessage(errors.New("")))
}

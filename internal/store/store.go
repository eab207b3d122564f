// Package store owns the chat threads, the active thread pointer and their
// persistence. All methods are safe for concurrent use; reads return copies.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"threechat/internal/models"

	"github.com/google/uuid"
)

// HistoryKey is the storage entry holding the serialized thread list.
const HistoryKey = "3chat_history"

const (
	TitleMaxRunes = 40
	TitleEllipsis = "..."
)

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrNotModelMessage = errors.New("last message is not a model message")
	ErrEmptyMessage    = errors.New("message is empty")
)

// Storage is the durable key-value store the thread list is written to.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type Store struct {
	mu        sync.RWMutex
	storage   Storage
	threads   []models.ChatThread
	activeID  string
	inFlight  map[string]bool
	listeners map[int]func()
	nextSubID int

	now func() time.Time
}

func New(storage Storage) *Store {
	return &Store{
		storage:   storage,
		inFlight:  make(map[string]bool),
		listeners: make(map[int]func()),
		now:       time.Now,
	}
}

// Subscribe registers fn to be called after every state change. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// LoadFromStorage replaces the in-memory state with the persisted thread list.
// Malformed content is discarded and the store starts empty; it never fails.
func (s *Store) LoadFromStorage() {
	threads := s.readPersisted()

	s.mu.Lock()
	s.threads = threads
	s.activeID = ""
	s.inFlight = make(map[string]bool)
	if len(threads) > 0 {
		s.activeID = threads[0].ID
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Store) readPersisted() []models.ChatThread {
	if s.storage == nil {
		return nil
	}

	raw, ok, err := s.storage.Get(HistoryKey)
	if err != nil {
		log.Printf("store: failed to load chat history: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	threads, err := decodeThreads(raw)
	if err != nil {
		log.Printf("store: discarding corrupted chat history: %v", err)
		if derr := s.storage.Delete(HistoryKey); derr != nil {
			log.Printf("store: failed to clear chat history: %v", derr)
		}
		return nil
	}
	return threads
}

func decodeThreads(raw string) ([]models.ChatThread, error) {
	var threads []models.ChatThread
	if err := json.Unmarshal([]byte(raw), &threads); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(threads))
	for i, t := range threads {
		if t.ID == "" {
			return nil, fmt.Errorf("thread %d has no id", i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate thread id %q", t.ID)
		}
		seen[t.ID] = true
		for j, m := range t.Messages {
			if !m.Role.Valid() {
				return nil, fmt.Errorf("thread %q message %d: unknown role %q", t.ID, j, m.Role)
			}
		}
		if threads[i].Messages == nil {
			threads[i].Messages = []models.ChatMessage{}
		}
	}
	return threads, nil
}

// persist writes a full snapshot. Must be called with the lock held.
func (s *Store) persist() {
	if s.storage == nil {
		return
	}

	threads := s.threads
	if threads == nil {
		threads = []models.ChatThread{}
	}
	data, err := json.Marshal(threads)
	if err != nil {
		log.Printf("store: failed to encode chat history: %v", err)
		return
	}
	if err := s.storage.Set(HistoryKey, string(data)); err != nil {
		log.Printf("store: failed to save chat history: %v", err)
	}
}

// Threads returns all threads, most recently created first.
func (s *Store) Threads() []models.ChatThread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChatThread, len(s.threads))
	for i, t := range s.threads {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Thread(id string) (models.ChatThread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.threads[i].Clone(), true
	}
	return models.ChatThread{}, false
}

// ActiveThreadID returns "" when no thread is selected.
func (s *Store) ActiveThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *Store) ActiveThread() (models.ChatThread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(s.activeID); i >= 0 {
		return s.threads[i].Clone(), true
	}
	return models.ChatThread{}, false
}

// InFlight reports whether the thread's trailing model message is still streaming.
func (s *Store) InFlight(threadID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight[threadID]
}

// StartNewThread clears the active thread. No record is created until the
// first message is sent.
func (s *Store) StartNewThread() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()

	s.notify()
}

func (s *Store) SelectThread(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("select %q: %w", id, ErrThreadNotFound)
	}
	s.activeID = id
	s.mu.Unlock()

	s.notify()
	return nil
}

// AppendUserMessage adds a user turn to the active thread, creating and
// activating a new thread for personaID when none is active. It returns the
// thread the model response should be routed to.
func (s *Store) AppendUserMessage(personaID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	msg := models.ChatMessage{Role: models.RoleUser, Content: text}

	s.mu.Lock()
	threadID := s.activeID
	if i := s.indexLocked(threadID); i >= 0 {
		s.threads[i].Messages = append(s.threads[i].Messages, msg)
	} else {
		thread := models.ChatThread{
			ID:        s.newIDLocked(),
			Title:     ThreadTitle(text),
			PersonaID: personaID,
			Messages:  []models.ChatMessage{msg},
		}
		s.threads = append([]models.ChatThread{thread}, s.threads...)
		s.activeID = thread.ID
		threadID = thread.ID
	}
	s.persist()
	s.mu.Unlock()

	s.notify()
	return threadID, nil
}

// AppendOrUpdateModelMessage records the response text streamed so far. The
// first fragment appends a new model message; later ones overwrite it.
func (s *Store) AppendOrUpdateModelMessage(threadID, fullTextSoFar string, isFirstFragment bool) error {
	s.mu.Lock()
	i := s.indexLocked(threadID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", threadID, ErrThreadNotFound)
	}

	t := &s.threads[i]
	if isFirstFragment {
		t.Messages = append(t.Messages, models.ChatMessage{Role: models.RoleModel, Content: fullTextSoFar})
		s.inFlight[threadID] = true
	} else {
		n := len(t.Messages)
		if n == 0 || t.Messages[n-1].Role != models.RoleModel {
			s.mu.Unlock()
			return fmt.Errorf("update %q: %w", threadID, ErrNotModelMessage)
		}
		t.Messages[n-1].Content = fullTextSoFar
	}
	s.persist()
	s.mu.Unlock()

	s.notify()
	return nil
}

// AppendErrorAsModelMessage answers the pending user turn with errorText,
// replacing a partially streamed model message if there is one.
func (s *Store) AppendErrorAsModelMessage(threadID, errorText string) error {
	s.mu.Lock()
	i := s.indexLocked(threadID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("append error to %q: %w", threadID, ErrThreadNotFound)
	}

	t := &s.threads[i]
	n := len(t.Messages)
	if s.inFlight[threadID] && n > 0 && t.Messages[n-1].Role == models.RoleModel {
		t.Messages[n-1].Content = errorText
	} else {
		t.Messages = append(t.Messages, models.ChatMessage{Role: models.RoleModel, Content: errorText})
	}
	delete(s.inFlight, threadID)
	s.persist()
	s.mu.Unlock()

	s.notify()
	return nil
}

// CompleteModelMessage marks the thread's streamed response as finished.
func (s *Store) CompleteModelMessage(threadID string) {
	s.mu.Lock()
	_, was := s.inFlight[threadID]
	delete(s.inFlight, threadID)
	s.mu.Unlock()

	if was {
		s.notify()
	}
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.threads {
		if s.threads[i].ID == id {
			return i
		}
	}
	return -1
}

// newIDLocked derives the id from the creation time, like the persisted
// history has always used; a collision within the same millisecond falls back
// to a random id.
func (s *Store) newIDLocked() string {
	id := strconv.FormatInt(s.now().UnixMilli(), 10)
	if s.indexLocked(id) >= 0 {
		return uuid.NewString()
	}
	return id
}

// ThreadTitle derives a thread title from the first user message.
func ThreadTitle(text string) string {
	r := []rune(text)
	if len(r) > TitleMaxRunes {
		return string(r[:TitleMaxRunes]) + TitleEllipsis
	}
	return text
}

// Package stream folds a model's streamed text fragments into a single
// growing message of a chat thread.
package stream

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
)

var ErrAssemblyInProgress = errors.New("a response is already streaming for this thread")

// Sink receives one update per fragment. *store.Store satisfies it.
type Sink interface {
	AppendOrUpdateModelMessage(threadID, fullTextSoFar string, isFirstFragment bool) error
	AppendErrorAsModelMessage(threadID, errorText string) error
	CompleteModelMessage(threadID string)
}

// StreamError is a failure raised by the fragment sequence itself, as opposed
// to a failure recording the response.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

type Assembler struct {
	sink Sink

	mu     sync.Mutex
	active map[string]bool
}

func NewAssembler(sink Sink) *Assembler {
	return &Assembler{
		sink:   sink,
		active: make(map[string]bool),
	}
}

// Busy reports whether a response is currently being assembled for threadID.
func (a *Assembler) Busy(threadID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active[threadID]
}

func (a *Assembler) acquire(threadID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active[threadID] {
		return false
	}
	a.active[threadID] = true
	return true
}

func (a *Assembler) release(threadID string) {
	a.mu.Lock()
	delete(a.active, threadID)
	a.mu.Unlock()
}

// Run consumes fragments until the sequence ends, recording the text produced
// so far after each one. A failure of the sequence replaces whatever was
// streamed with ErrorMessage(err) and is returned wrapped in *StreamError.
// A running stream is never aborted.
func (a *Assembler) Run(threadID string, fragments iter.Seq2[string, error]) (string, error) {
	if !a.acquire(threadID) {
		return "", ErrAssemblyInProgress
	}
	defer a.release(threadID)

	var acc strings.Builder
	first := true
	for fragment, err := range fragments {
		if err != nil {
			if serr := a.sink.AppendErrorAsModelMessage(threadID, ErrorMessage(err)); serr != nil {
				return acc.String(), fmt.Errorf("record stream failure: %w", serr)
			}
			return acc.String(), &StreamError{Err: err}
		}

		acc.WriteString(fragment)
		if err := a.sink.AppendOrUpdateModelMessage(threadID, acc.String(), first); err != nil {
			return acc.String(), fmt.Errorf("record fragment: %w", err)
		}
		first = false
	}

	a.sink.CompleteModelMessage(threadID)
	return acc.String(), nil
}

// ErrorMessage is the model-role message recorded in place of a failed response.
func ErrorMessage(err error) string {
	return "Sorry, I ran into an error: " + describe(err)
}

// BannerText is the transient, user-visible text for a failure.
func BannerText(err error) string {
	return "Error: " + describe(err)
}

func describe(err error) string {
	if err == nil || err.Error() == "" {
		return "An unknown error occurred."
	}
	return err.Error()
}

// Package extract runs dominant colour extraction off the caller's goroutine
// and hands the result back through a non-blocking mailbox that the caller
// polls once per tick.
package extract

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/domcolour/internal/colour"
)

var (
	// ErrEmpty is returned by Mailbox.TryReceive when nothing is queued.
	// It is the only receive condition the poller swallows.
	ErrEmpty = errors.New("mailbox empty")

	// ErrMailboxFull is returned by Mailbox.Put when a session writes more than it should.
	ErrMailboxFull = errors.New("mailbox full")

	// ErrBusy is returned by Trigger and Close while a session is in flight.
	ErrBusy = errors.New("extraction already in progress")

	// ErrOutOfOrder is returned when a message arrives that the current status cannot accept.
	ErrOutOfOrder = errors.New("message received out of order")
)

// Kind discriminates the messages a worker sends.
type Kind int

const (
	// KindProcessing marks that the worker has started.
	KindProcessing Kind = iota + 1
	// KindResult carries the luminance-sorted centroids.
	KindResult
	// KindFailed carries the error that stopped the worker.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindProcessing:
		return "processing"
	case KindResult:
		return "result"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is a worker to caller hand-off.
type Message struct {
	Kind    Kind
	Colours []colour.LuminanceColour
	Err     error
}

// Processing returns the status marker sent when a worker starts.
func Processing() Message {
	return Message{Kind: KindProcessing}
}

// Result returns the completion payload.
func Result(colours []colour.LuminanceColour) Message {
	return Message{Kind: KindResult, Colours: colours}
}

// Failed returns a failure payload.
func Failed(err error) Message {
	return Message{Kind: KindFailed, Err: err}
}

// Package terminal captures key presses from the host terminal so they can be
// forwarded to the client.
package terminal

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/keys"
	"go.uber.org/atomic"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Open when the file isn't a terminal.
var ErrNotTerminal = errors.New("terminal: not a terminal")

// Terminal reads key presses from a terminal in the background. The terminal
// is switched to key capture mode (no line buffering, no echo) until Close
// is called.
type Terminal struct {
	log   log.Logger
	f     *os.File
	fd    int
	state *term.State

	events chan keys.Event
	done   chan struct{}
	closed atomic.Bool
}

// Open starts capturing keys from f. Close must be called to restore the
// terminal.
func Open(l log.Logger, f *os.File) (*Terminal, error) {
	if l == nil {
		l = log.NewNopLogger()
	}

	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("saving terminal state: %w", err)
	}
	if err := makeCbreak(fd); err != nil {
		return nil, fmt.Errorf("entering key capture mode: %w", err)
	}

	t := &Terminal{
		log:    l,
		f:      f,
		fd:     fd,
		state:  state,
		events: make(chan keys.Event, 32),
		done:   make(chan struct{}),
	}

	input := make(chan byte, 64)
	go t.readInput(input)
	go scanKeys(l, input, t.events, EscapeDelay)
	return t, nil
}

// PollKey returns the oldest pending key press. It never blocks; ok is false
// when no key has been pressed.
func (t *Terminal) PollKey() (ev keys.Event, ok bool) {
	select {
	case ev = <-t.events:
		return ev, true
	default:
		return ev, false
	}
}

// Close restores the terminal to the state it was in before Open. The
// background reader exits after the next byte arrives on the terminal.
func (t *Terminal) Close() error {
	if !t.closed.CAS(false, true) {
		return nil
	}
	close(t.done)
	return term.Restore(t.fd, t.state)
}

func (t *Terminal) readInput(out chan<- byte) {
	defer close(out)

	buf := make([]byte, 64)
	for {
		n, err := t.f.Read(buf)
		for _, b := range buf[:n] {
			select {
			case out <- b:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if !t.closed.Load() {
				level.Warn(t.log).Log("msg", "stopped reading terminal input", "err", err)
			}
			return
		}
	}
}

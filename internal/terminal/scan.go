package terminal

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/keys"
)

// EscapeDelay is how long to wait after an escape byte for the rest of an
// escape sequence. An escape byte with nothing following it within the delay
// is reported as the Escape key.
const EscapeDelay = 100 * time.Millisecond

// maxSequence bounds the parameter bytes of a CSI sequence.
const maxSequence = 16

// tildeKeys maps the numeric parameter of "ESC [ n ~" sequences.
var tildeKeys = map[int]keys.Key{
	1:  keys.KeyHome,
	2:  keys.KeyInsert,
	3:  keys.KeyDelete,
	4:  keys.KeyEnd,
	5:  keys.KeyPageUp,
	6:  keys.KeyPageDown,
	7:  keys.KeyHome,
	8:  keys.KeyEnd,
	11: keys.KeyF1,
	12: keys.KeyF2,
	13: keys.KeyF3,
	14: keys.KeyF4,
	15: keys.KeyF5,
	17: keys.KeyF6,
	18: keys.KeyF7,
	19: keys.KeyF8,
	20: keys.KeyF9,
	21: keys.KeyF10,
	23: keys.KeyF11,
	24: keys.KeyF12,
}

// scanKeys turns terminal input into key events until in is closed. Events
// are dropped when out is full.
func scanKeys(l log.Logger, in <-chan byte, out chan<- keys.Event, escDelay time.Duration) {
	s := &scanner{log: l, in: in, out: out, escDelay: escDelay}
	for {
		b, ok := s.next()
		if !ok {
			return
		}
		s.handle(b)
	}
}

type scanner struct {
	log      log.Logger
	in       <-chan byte
	out      chan<- keys.Event
	escDelay time.Duration

	pending    byte
	hasPending bool
}

// next blocks for the next input byte.
func (s *scanner) next() (byte, bool) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, true
	}
	b, ok := <-s.in
	return b, ok
}

// nextWithin waits up to the escape delay for the next input byte.
func (s *scanner) nextWithin() (byte, bool) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, true
	}

	t := time.NewTimer(s.escDelay)
	defer t.Stop()

	select {
	case b, ok := <-s.in:
		return b, ok
	case <-t.C:
		return 0, false
	}
}

func (s *scanner) unread(b byte) {
	s.pending = b
	s.hasPending = true
}

func (s *scanner) emit(ev keys.Event) {
	select {
	case s.out <- ev:
	default:
		level.Debug(s.log).Log("msg", "dropping key press, too many pending", "key", ev)
	}
}

func (s *scanner) handle(b byte) {
	switch {
	case b == 0x1B:
		s.escape()
	case b < utf8.RuneSelf:
		s.emit(keys.Char(rune(b)))
	default:
		s.multibyte(b)
	}
}

func (s *scanner) multibyte(first byte) {
	buf := []byte{first}
	for !utf8.FullRune(buf) {
		b, ok := s.nextWithin()
		if !ok {
			break
		}
		if !utf8.RuneStart(b) {
			buf = append(buf, b)
			continue
		}
		s.unread(b)
		break
	}

	r, _ := utf8.DecodeRune(buf)
	s.emit(keys.Char(r))
}

func (s *scanner) escape() {
	b, ok := s.nextWithin()
	if !ok {
		s.emit(keys.Char(0x1B))
		return
	}

	switch b {
	case '[':
		s.csi()
	case 'O':
		s.ss3()
	default:
		s.emit(keys.Char(0x1B))
		s.unread(b)
	}
}

func (s *scanner) csi() {
	b, ok := s.nextWithin()
	if !ok {
		return
	}

	// Linux console: ESC [ [ A-E for F1-F5.
	if b == '[' {
		b, ok = s.nextWithin()
		if !ok {
			return
		}
		if b >= 'A' && b <= 'E' {
			s.emit(keys.Named(keys.KeyF1 + keys.Key(b-'A')))
		}
		return
	}

	var params strings.Builder
	for b < 0x40 || b > 0x7E {
		if params.Len() >= maxSequence {
			level.Debug(s.log).Log("msg", "ignoring oversized escape sequence")
			return
		}
		params.WriteByte(b)
		if b, ok = s.nextWithin(); !ok {
			return
		}
	}
	s.emitSequence(b, params.String())
}

func (s *scanner) ss3() {
	b, ok := s.nextWithin()
	if !ok {
		return
	}
	s.emitSequence(b, "")
}

func (s *scanner) emitSequence(final byte, params string) {
	if k := sequenceKey(final, params); k != keys.KeyUnknown {
		s.emit(keys.Named(k))
		return
	}
	level.Debug(s.log).Log("msg", "ignoring unknown escape sequence", "params", params, "final", string(final))
}

// sequenceKey returns the key for an escape sequence ending in final.
// Modifier parameters (e.g., "1;5") are ignored.
func sequenceKey(final byte, params string) keys.Key {
	switch final {
	case 'A':
		return keys.KeyUp
	case 'B':
		return keys.KeyDown
	case 'C':
		return keys.KeyRight
	case 'D':
		return keys.KeyLeft
	case 'H':
		return keys.KeyHome
	case 'F':
		return keys.KeyEnd
	case 'P', 'Q', 'R', 'S':
		return keys.KeyF1 + keys.Key(final-'P')
	case '~':
		if i := strings.IndexByte(params, ';'); i >= 0 {
			params = params[:i]
		}
		n, err := strconv.Atoi(params)
		if err != nil {
			return keys.KeyUnknown
		}
		return tildeKeys[n]
	default:
		return keys.KeyUnknown
	}
}

// Package keys translates host keyboard input into the HC800 key code space.
package keys

import "fmt"

// Kind is the kind of an Event.
type Kind uint8

const (
	KindChar Kind = iota // Event holds a character.
	KindKey              // Event holds a named key.
)

// Key is a named key which doesn't produce a character.
type Key uint8

// Named keys recognized by the terminal.
const (
	KeyUnknown Key = iota
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var keyNames = [...]string{
	KeyUnknown:  "Unknown",
	KeyHome:     "Home",
	KeyEnd:      "End",
	KeyInsert:   "Insert",
	KeyDelete:   "Delete",
	KeyPageUp:   "PageUp",
	KeyPageDown: "PageDown",
	KeyUp:       "Up",
	KeyDown:     "Down",
	KeyLeft:     "Left",
	KeyRight:    "Right",
	KeyF1:       "F1",
	KeyF2:       "F2",
	KeyF3:       "F3",
	KeyF4:       "F4",
	KeyF5:       "F5",
	KeyF6:       "F6",
	KeyF7:       "F7",
	KeyF8:       "F8",
	KeyF9:       "F9",
	KeyF10:      "F10",
	KeyF11:      "F11",
	KeyF12:      "F12",
}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// Event is a single key press captured from the host terminal.
type Event struct {
	Kind Kind
	Char rune // Set when Kind is KindChar
	Key  Key  // Set when Kind is KindKey
}

// Char returns a character Event.
func Char(r rune) Event { return Event{Kind: KindChar, Char: r} }

// Named returns a named key Event.
func Named(k Key) Event { return Event{Kind: KindKey, Key: k} }

func (e Event) String() string {
	if e.Kind == KindKey {
		return e.Key.String()
	}
	return fmt.Sprintf("%q", e.Char)
}

// HC800 key codes for keys outside of the printable range.
const (
	CodeHome      byte = 1
	CodeLeft      byte = 2
	CodeDelete    byte = 4
	CodeEnd       byte = 5
	CodeRight     byte = 6
	CodeBackSpace byte = 8
	CodeTab       byte = 9
	CodeReturn    byte = 10
	CodeDown      byte = 14
	CodeUp        byte = 16
	CodeF1        byte = 18
	CodeF2        byte = 19
	CodeF3        byte = 20
	CodeF4        byte = 21
	CodeF5        byte = 22
	CodeF6        byte = 23
	CodeF7        byte = 24
	CodeF8        byte = 25
	CodeEscape    byte = 27
	CodeF9        byte = 28
	CodeF10       byte = 29
	CodeF11       byte = 30
	CodeF12       byte = 31
)

var namedCodes = map[Key]byte{
	KeyHome:   CodeHome,
	KeyLeft:   CodeLeft,
	KeyDelete: CodeDelete,
	KeyEnd:    CodeEnd,
	KeyRight:  CodeRight,
	KeyDown:   CodeDown,
	KeyUp:     CodeUp,
	KeyF1:     CodeF1,
	KeyF2:     CodeF2,
	KeyF3:     CodeF3,
	KeyF4:     CodeF4,
	KeyF5:     CodeF5,
	KeyF6:     CodeF6,
	KeyF7:     CodeF7,
	KeyF8:     CodeF8,
	KeyF9:     CodeF9,
	KeyF10:    CodeF10,
	KeyF11:    CodeF11,
	KeyF12:    CodeF12,
}

// Translate maps e to an HC800 key code. ok is false when e has no
// equivalent on the HC800.
func Translate(e Event) (code byte, ok bool) {
	switch e.Kind {
	case KindChar:
		return translateChar(e.Char)
	case KindKey:
		code, ok = namedCodes[e.Key]
		return code, ok
	default:
		return 0, false
	}
}

func translateChar(r rune) (byte, bool) {
	switch {
	case r == '\t':
		return CodeTab, true
	case r == '\n', r == '\r':
		return CodeReturn, true
	case r == 0x1B:
		return CodeEscape, true
	case r == 0x7F, r == '\b':
		return CodeBackSpace, true
	case r >= 32 && r <= 255:
		return byte(r), true
	default:
		return 0, false
	}
}

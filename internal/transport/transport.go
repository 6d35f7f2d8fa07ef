// Package transport provides byte transports for the uart protocol: serial
// devices for real hardware and stream sockets for emulators and tests.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rfratto/uartfs/internal/uart"
	"go.uber.org/atomic"
)

// Options controls how a transport is opened.
type Options struct {
	// BaudRate of serial devices. Ignored for sockets.
	BaudRate int
}

// DefaultOptions holds default options for transports.
var DefaultOptions = Options{
	BaudRate: 57600,
}

// Open opens the transport named by addr. Addresses with a tcp:// or unix://
// scheme connect to a stream socket. Anything else is treated as the path to
// a serial device.
func Open(addr string, o Options) (*Stream, error) {
	if !strings.Contains(addr, "://") {
		path, err := homedir.Expand(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid device %s: %w", addr, err)
		}
		dev, err := openSerial(path, o.BaudRate)
		if err != nil {
			return nil, fmt.Errorf("cannot open serial device %s: %w", path, err)
		}
		return newStream(dev, dev.Drain), nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}
	switch u.Scheme {
	case "tcp", "unix":
	default:
		return nil, fmt.Errorf("unsupported transport scheme %q", u.Scheme)
	}

	address, err := homedir.Expand(u.Host + u.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}
	conn, err := net.Dial(u.Scheme, address)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s %s: %w", u.Scheme, address, err)
	}
	return NewStream(conn), nil
}

// Stream implements uart.Transport over any io.ReadWriteCloser. Writes are
// buffered until Flush.
type Stream struct {
	rwc   io.ReadWriteCloser
	r     *bufio.Reader
	w     *bufio.Writer
	drain func() error

	closed atomic.Bool
}

var _ uart.Transport = (*Stream)(nil)

// NewStream wraps rwc into a Stream.
func NewStream(rwc io.ReadWriteCloser) *Stream {
	return newStream(rwc, nil)
}

func newStream(rwc io.ReadWriteCloser, drain func() error) *Stream {
	return &Stream{
		rwc:   rwc,
		r:     bufio.NewReader(rwc),
		w:     bufio.NewWriter(rwc),
		drain: drain,
	}
}

func (s *Stream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *Stream) Write(p []byte) (int, error) { return s.w.Write(p) }

// Flush writes buffered data and, for serial devices, waits until it has been
// transmitted.
func (s *Stream) Flush() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.drain != nil {
		return s.drain()
	}
	return nil
}

// Close closes the underlying stream, unblocking any pending Read or Flush.
// Writes that haven't been flushed are discarded. Close may be called
// concurrently with other methods and is safe to call more than once.
func (s *Stream) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}
	return s.rwc.Close()
}

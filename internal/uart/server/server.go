// Package server serves the uart protocol over a Transport.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rfratto/uartfs/internal/uart"
	"go.uber.org/atomic"
)

// Handler processes commands from a transport. Handler is passed to New, and
// its methods are invoked as commands come in.
//
// Returning an error causes the client to receive StatusNotAvailable. When
// the error is nil, the response must be non-nil.
type Handler interface {
	Identify(context.Context, *uart.IdentifyCommand) (*uart.IdentifyResponse, error)
	SendFile(context.Context, *uart.SendFileCommand) (*uart.SendFileResponse, error)
	RequestChar(context.Context, *uart.RequestCharCommand) (*uart.RequestCharResponse, error)
	PrintChar(context.Context, *uart.PrintCharCommand) error
	StatFile(context.Context, *uart.StatFileCommand) (*uart.StatFileResponse, error)
	ReadDirectory(context.Context, *uart.ReadDirectoryCommand) (*uart.ReadDirectoryResponse, error)
}

type Options struct {
	// Transport is the transport used to read commands and write responses.
	// Server takes ownership of the Transport after passing to New; do not
	// close directly.
	Transport uart.Transport

	// Handler is used for handling individual commands.
	Handler Handler

	// Optional middleware to preprocess commands with.
	Middleware []Middleware

	// Optional registerer for server metrics. Metrics are not collected when
	// nil.
	Registerer prometheus.Registerer
}

// Server is a uart server, which handles commands from a transport one at a
// time by passing them to a Handler.
type Server struct {
	log log.Logger
	o   Options

	dec *uart.Decoder
	buf bytes.Buffer

	// The middleware to execute before the handler
	mw      Middleware
	handler Invoker

	closing atomic.Bool
}

// New creates a new Server. Decoded commands will be passed to Handler for
// handling.
//
// Call Serve to start the Server.
func New(l log.Logger, o Options) (*Server, error) {
	if o.Transport == nil {
		return nil, fmt.Errorf("Transport must be set")
	}
	if o.Handler == nil {
		return nil, fmt.Errorf("Handler must be set")
	}
	if l == nil {
		l = log.NewNopLogger()
	}

	s := &Server{
		log:     l,
		o:       o,
		dec:     uart.NewDecoder(l, o.Transport),
		handler: handlerInvoker(o.Handler),
	}

	// Build an optional chain of middleware to handle the command. Metrics
	// go first so they observe time spent in other middleware.
	var chain []Middleware
	if o.Registerer != nil {
		mm, err := newMetricsMiddleware(o.Registerer, s.dec.Skipped)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		chain = append(chain, mm)
	}
	chain = append(chain, o.Middleware...)
	s.mw = chainMiddleware(chain)

	return s, nil
}

// Serve starts the server. Serve returns when the transport fails or when
// ctx is canceled. Cancellation is not an error.
//
// Serve should not be called again after it has exited.
func (s *Server) Serve(ctx context.Context) error {
	// Reading from the transport can't be canceled. A dedicated goroutine
	// closes the transport when ctx is canceled to unblock it.
	exited := make(chan struct{})
	defer func() { <-exited }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer close(exited)
		<-ctx.Done()
		s.closing.Store(true)

		level.Info(s.log).Log("msg", "uart server exiting")
		defer level.Debug(s.log).Log("msg", "uart server exited")

		if err := s.o.Transport.Close(); err != nil {
			level.Error(s.log).Log("msg", "error when closing transport", "err", err)
		}
	}()

	for {
		cmd, err := s.dec.Decode()
		if s.closing.Load() {
			level.Debug(s.log).Log("msg", "context canceled, breaking out of server read loop")
			return nil
		} else if errors.Is(err, io.EOF) {
			level.Debug(s.log).Log("msg", "got EOF from transport; exiting")
			return fmt.Errorf("transport closed by peer: %w", err)
		} else if err != nil {
			return fmt.Errorf("reading command: %w", err)
		}

		resp, err := s.mw.HandleRequest(ctx, cmd, s.handler)
		if err := s.sendResponse(cmd, resp, err); err != nil {
			if s.closing.Load() {
				return nil
			}
			return fmt.Errorf("writing %s response: %w", cmd.ID(), err)
		}
	}
}

// sendResponse writes the response frame for cmd. The payload is encoded up
// front so that a payload which can't be encoded is still reported as
// StatusNotAvailable.
func (s *Server) sendResponse(cmd uart.Command, resp uart.Response, handlerErr error) error {
	s.buf.Reset()

	status := statusForError(handlerErr)
	if status == uart.StatusOK {
		if err := uart.WritePayload(uart.NewWriter(&s.buf), resp); err != nil {
			level.Warn(s.log).Log("msg", "failed to encode response", "cmd", cmd.ID(), "err", err)
			status = uart.StatusNotAvailable
			s.buf.Reset()
		}
	}

	if err := uart.WriteStatus(uart.NewWriter(s.o.Transport), status); err != nil {
		return err
	}
	if _, err := s.o.Transport.Write(s.buf.Bytes()); err != nil {
		return err
	}
	return s.o.Transport.Flush()
}

// statusForError maps a handler error to the status reported to the client.
// The protocol has no way to describe failures, so every error is reported
// as StatusNotAvailable.
func statusForError(err error) uart.Status {
	if err == nil {
		return uart.StatusOK
	}
	return uart.StatusNotAvailable
}

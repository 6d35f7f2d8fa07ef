package server

import (
	"context"
	"fmt"

	"github.com/rfratto/uartfs/internal/uart"
)

// Middleware hooks into commands.
type Middleware interface {
	// HandleRequest handles an individual command.
	HandleRequest(ctx context.Context, cmd uart.Command, invoker Invoker) (uart.Response, error)
}

// Invoker is called by Middleware to complete commands.
type Invoker func(ctx context.Context, cmd uart.Command) (uart.Response, error)

// FuncMiddleware is a function that implements Middleware.
type FuncMiddleware func(ctx context.Context, cmd uart.Command, i Invoker) (uart.Response, error)

func (f FuncMiddleware) HandleRequest(ctx context.Context, cmd uart.Command, i Invoker) (uart.Response, error) {
	return f(ctx, cmd, i)
}

// handlerInvoker converts h into an Invoker.
func handlerInvoker(h Handler) Invoker {
	return func(ctx context.Context, cmd uart.Command) (resp uart.Response, err error) {
		switch cmd := cmd.(type) {
		case *uart.IdentifyCommand:
			var r *uart.IdentifyResponse
			if r, err = h.Identify(ctx, cmd); r != nil {
				resp = r
			}

		case *uart.SendFileCommand:
			var r *uart.SendFileResponse
			if r, err = h.SendFile(ctx, cmd); r != nil {
				resp = r
			}

		case *uart.RequestCharCommand:
			var r *uart.RequestCharResponse
			if r, err = h.RequestChar(ctx, cmd); r != nil {
				resp = r
			}

		case *uart.PrintCharCommand:
			// PrintChar has no response payload.
			err = h.PrintChar(ctx, cmd)

		case *uart.StatFileCommand:
			var r *uart.StatFileResponse
			if r, err = h.StatFile(ctx, cmd); r != nil {
				resp = r
			}

		case *uart.ReadDirectoryCommand:
			var r *uart.ReadDirectoryResponse
			if r, err = h.ReadDirectory(ctx, cmd); r != nil {
				resp = r
			}

		default:
			err = fmt.Errorf("unexpected command %T: %w", cmd, uart.ErrNotAvailable)
		}

		if err != nil {
			return nil, err
		}
		if resp == nil && cmd.ID() != uart.CommandPrintChar {
			return nil, fmt.Errorf("handler returned no response for %s: %w", cmd.ID(), uart.ErrNotAvailable)
		}
		return resp, nil
	}
}

type chainMiddleware []Middleware

func (c chainMiddleware) HandleRequest(ctx context.Context, cmd uart.Command, invoker Invoker) (uart.Response, error) {
	if len(c) == 0 {
		return invoker(ctx, cmd)
	}

	var (
		index        int
		chainInvoker Invoker
	)

	chainInvoker = func(ctx context.Context, cmd uart.Command) (uart.Response, error) {
		mw := c[index]
		index++

		var next Invoker
		if index == len(c) {
			next = invoker
		} else {
			next = chainInvoker
		}

		return mw.HandleRequest(ctx, cmd, next)
	}
	return chainInvoker(ctx, cmd)
}

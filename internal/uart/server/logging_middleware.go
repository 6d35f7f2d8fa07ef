package server

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/uart"
)

// NewLoggingMiddleware returns a new logging middleware.
func NewLoggingMiddleware(l log.Logger) Middleware {
	if l == nil {
		l = log.NewNopLogger()
	}
	return &loggingMiddleware{l: l}
}

type loggingMiddleware struct {
	l log.Logger
}

func (lm *loggingMiddleware) HandleRequest(ctx context.Context, cmd uart.Command, invoker Invoker) (uart.Response, error) {
	level.Debug(lm.l).Log("msg", "starting command", "cmd", cmd.ID(), "args", commandArgs(cmd))
	resp, err := invoker(ctx, cmd)
	level.Debug(lm.l).Log("msg", "finished command", "cmd", cmd.ID(), "status", statusForError(err), "err", err)
	return resp, err
}

func commandArgs(cmd uart.Command) string {
	switch cmd := cmd.(type) {
	case *uart.IdentifyCommand:
		return fmt.Sprintf("nonce=%d", cmd.Nonce)
	case *uart.SendFileCommand:
		return fmt.Sprintf("path=%q offset=%d length=%d", cmd.Path, cmd.Offset, cmd.Length)
	case *uart.PrintCharCommand:
		return fmt.Sprintf("char=%d", cmd.Char)
	case *uart.StatFileCommand:
		return fmt.Sprintf("path=%q", cmd.Path)
	case *uart.ReadDirectoryCommand:
		return fmt.Sprintf("path=%q index=%d", cmd.Path, cmd.Index)
	default:
		return ""
	}
}

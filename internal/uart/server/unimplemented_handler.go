package server

import (
	"context"

	"github.com/rfratto/uartfs/internal/uart"
)

// UnimplementedHandler implements Handler and returns ErrNotAvailable for all
// commands.
type UnimplementedHandler struct{}

// Static type check test
var _ Handler = UnimplementedHandler{}

func (UnimplementedHandler) Identify(context.Context, *uart.IdentifyCommand) (*uart.IdentifyResponse, error) {
	return nil, uart.ErrNotAvailable
}

func (UnimplementedHandler) SendFile(context.Context, *uart.SendFileCommand) (*uart.SendFileResponse, error) {
	return nil, uart.ErrNotAvailable
}

func (UnimplementedHandler) RequestChar(context.Context, *uart.RequestCharCommand) (*uart.RequestCharResponse, error) {
	return nil, uart.ErrNotAvailable
}

func (UnimplementedHandler) PrintChar(context.Context, *uart.PrintCharCommand) error {
	return uart.ErrNotAvailable
}

func (UnimplementedHandler) StatFile(context.Context, *uart.StatFileCommand) (*uart.StatFileResponse, error) {
	return nil, uart.ErrNotAvailable
}

func (UnimplementedHandler) ReadDirectory(context.Context, *uart.ReadDirectoryCommand) (*uart.ReadDirectoryResponse, error) {
	return nil, uart.ErrNotAvailable
}

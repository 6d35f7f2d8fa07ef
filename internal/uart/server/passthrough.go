package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/keys"
	"github.com/rfratto/uartfs/internal/uart"
)

// readDirBatch is the number of directory entries read at a time while
// searching for an index.
const readDirBatch = 64

// KeySource provides key presses for RequestChar.
type KeySource interface {
	// PollKey returns a pending key press without blocking.
	PollKey() (keys.Event, bool)
}

// PassthroughOptions configures the Passthrough handler.
type PassthroughOptions struct {
	// Root is the directory files are served from.
	Root string

	// Keys provides key presses for RequestChar. RequestChar is never
	// available when Keys is nil.
	Keys KeySource

	// Console receives characters from PrintChar. Characters are discarded
	// when Console is nil.
	Console io.Writer
}

// Passthrough creates a new Handler which passes through commands to the host
// filesystem and terminal. Paths are resolved relative to the provided root
// and can't lexically climb out of it. Note that this isn't a chroot, and
// it's possible to read files in higher directories via symbolic links.
func Passthrough(l log.Logger, o PassthroughOptions) Handler {
	if l == nil {
		l = log.NewNopLogger()
	}
	if o.Console == nil {
		o.Console = io.Discard
	}
	return &passthroughHandler{log: l, o: o}
}

type passthroughHandler struct {
	log log.Logger
	o   PassthroughOptions
}

var _ Handler = (*passthroughHandler)(nil)

// resolve converts a client path into a host path under the root. The client
// uses either separator and usually sends absolute paths.
func (h *passthroughHandler) resolve(clientPath string) string {
	clientPath = strings.ReplaceAll(clientPath, `\`, "/")
	rel := path.Clean("/" + clientPath)
	return filepath.Join(h.o.Root, filepath.FromSlash(rel))
}

func (h *passthroughHandler) Identify(_ context.Context, cmd *uart.IdentifyCommand) (*uart.IdentifyResponse, error) {
	return &uart.IdentifyResponse{Value: ^cmd.Nonce}, nil
}

func (h *passthroughHandler) SendFile(_ context.Context, cmd *uart.SendFileCommand) (*uart.SendFileResponse, error) {
	f, err := os.Open(h.resolve(cmd.Path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", cmd.Path, uart.ErrNotAvailable)
	}

	n := int64(cmd.Length)
	if n == 0 {
		n = fi.Size() - int64(cmd.Offset)
		if n < 0 {
			n = 0
		}
	}
	if n > uart.MaxPayload {
		level.Debug(h.log).Log("msg", "clamping file read", "path", cmd.Path, "requested", n, "max", uart.MaxPayload)
		n = uart.MaxPayload
	}

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, int64(cmd.Offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &uart.SendFileResponse{Data: buf[:read]}, nil
}

func (h *passthroughHandler) RequestChar(_ context.Context, _ *uart.RequestCharCommand) (*uart.RequestCharResponse, error) {
	if h.o.Keys == nil {
		return nil, fmt.Errorf("no terminal attached: %w", uart.ErrNotAvailable)
	}

	ev, ok := h.o.Keys.PollKey()
	if !ok {
		return nil, uart.ErrNotAvailable
	}
	code, ok := keys.Translate(ev)
	if !ok {
		level.Debug(h.log).Log("msg", "can't map key", "key", ev)
		return nil, uart.ErrNotAvailable
	}
	return &uart.RequestCharResponse{Code: code}, nil
}

func (h *passthroughHandler) PrintChar(_ context.Context, cmd *uart.PrintCharCommand) error {
	if _, err := io.WriteString(h.o.Console, string(uart.DecodeChar(cmd.Char))); err != nil {
		level.Warn(h.log).Log("msg", "failed to print character", "err", err)
	}
	return nil
}

func (h *passthroughHandler) StatFile(_ context.Context, cmd *uart.StatFileCommand) (*uart.StatFileResponse, error) {
	// Files which exist but can't be opened are unavailable too.
	f, err := os.Open(h.resolve(cmd.Path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &uart.StatFileResponse{
		IsDir:  fi.IsDir(),
		Length: uint64(fi.Size()),
	}, nil
}

func (h *passthroughHandler) ReadDirectory(_ context.Context, cmd *uart.ReadDirectoryCommand) (*uart.ReadDirectoryResponse, error) {
	f, err := os.Open(h.resolve(cmd.Path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Entries are returned in directory order so indices stay stable without
	// reading the whole directory.
	remaining := int(cmd.Index)
	for {
		ents, err := f.ReadDir(readDirBatch)
		if remaining < len(ents) {
			return directoryEntry(ents[remaining])
		}
		remaining -= len(ents)

		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("index %d out of range: %w", cmd.Index, uart.ErrNotAvailable)
		} else if err != nil {
			return nil, err
		}
	}
}

func directoryEntry(ent os.DirEntry) (*uart.ReadDirectoryResponse, error) {
	if _, err := uart.EncodeText(ent.Name()); err != nil {
		return nil, err
	}
	fi, err := ent.Info()
	if err != nil {
		return nil, err
	}
	return &uart.ReadDirectoryResponse{
		Entry: uart.DirectoryEntry{
			Name:   ent.Name(),
			Length: uint64(fi.Size()),
			IsDir:  fi.IsDir(),
		},
	}, nil
}

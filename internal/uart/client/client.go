// Package client implements the client side of the uart protocol. It's used
// for diagnostics and testing; the usual client is the HC800 itself.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/uart"
)

// Client sends commands to a uart server. Commands are sent one at a time;
// Client is safe for concurrent use but calls are serialized.
type Client struct {
	log log.Logger
	t   uart.Transport
	r   *uart.Reader
	w   *uart.Writer

	mut sync.Mutex
}

// New creates a Client communicating over t. The Client takes ownership of
// t.
func New(l log.Logger, t uart.Transport) *Client {
	if l == nil {
		l = log.NewNopLogger()
	}
	return &Client{
		log: l,
		t:   t,
		r:   uart.NewReader(t),
		w:   uart.NewWriter(t),
	}
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.t.Close()
}

// Do sends cmd and waits for its response. Do returns uart.ErrNotAvailable
// when the server reported StatusNotAvailable.
//
// The protocol has no way to cancel a command in flight; ctx is only checked
// before sending.
func (c *Client) Do(ctx context.Context, cmd uart.Command) (uart.Response, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level.Debug(c.log).Log("msg", "sending command", "cmd", cmd.ID())
	if err := uart.WriteCommand(c.w, cmd); err != nil {
		return nil, fmt.Errorf("writing %s: %w", cmd.ID(), err)
	}
	if err := c.t.Flush(); err != nil {
		return nil, fmt.Errorf("writing %s: %w", cmd.ID(), err)
	}
	return uart.ReadResponse(c.r, cmd.ID())
}

// Identify sends a liveness check. A healthy server returns the complement
// of nonce.
func (c *Client) Identify(ctx context.Context, nonce uint16) (uint16, error) {
	resp, err := c.Do(ctx, &uart.IdentifyCommand{Nonce: nonce})
	if err != nil {
		return 0, err
	}
	return resp.(*uart.IdentifyResponse).Value, nil
}

// SendFile reads up to length bytes of the file at path, starting at offset.
// A length of 0 reads until the end of the file, limited to
// uart.MaxPayload bytes.
func (c *Client) SendFile(ctx context.Context, path string, offset uint32, length uint16) ([]byte, error) {
	resp, err := c.Do(ctx, &uart.SendFileCommand{Path: path, Offset: offset, Length: length})
	if err != nil {
		return nil, err
	}
	return resp.(*uart.SendFileResponse).Data, nil
}

// ReadFile reads the whole file at path, issuing as many SendFile commands as
// needed.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	stat, err := c.StatFile(ctx, path)
	if err != nil {
		return nil, err
	} else if stat.IsDir {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data := make([]byte, 0, stat.Length)
	for uint64(len(data)) < stat.Length {
		chunk, err := c.SendFile(ctx, path, uint32(len(data)), 0)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		data = append(data, chunk...)
	}
	return data, nil
}

// RequestChar polls the server for a key press. uart.ErrNotAvailable is
// returned when no key is pending.
func (c *Client) RequestChar(ctx context.Context) (byte, error) {
	resp, err := c.Do(ctx, &uart.RequestCharCommand{})
	if err != nil {
		return 0, err
	}
	return resp.(*uart.RequestCharResponse).Code, nil
}

// PrintChar prints ch on the server's console.
func (c *Client) PrintChar(ctx context.Context, ch byte) error {
	_, err := c.Do(ctx, &uart.PrintCharCommand{Char: ch})
	return err
}

// StatFile returns information about the file at path. Lengths of 2^24 and
// above aren't reported correctly by the server.
func (c *Client) StatFile(ctx context.Context, path string) (*uart.StatFileResponse, error) {
	resp, err := c.Do(ctx, &uart.StatFileCommand{Path: path})
	if err != nil {
		return nil, err
	}
	return resp.(*uart.StatFileResponse), nil
}

// ReadDirectory returns the index-th entry of the directory at path.
func (c *Client) ReadDirectory(ctx context.Context, path string, index uint16) (uart.DirectoryEntry, error) {
	resp, err := c.Do(ctx, &uart.ReadDirectoryCommand{Index: index, Path: path})
	if err != nil {
		return uart.DirectoryEntry{}, err
	}
	return resp.(*uart.ReadDirectoryResponse).Entry, nil
}

// ListDirectory returns every entry of the directory at path, in directory
// order.
func (c *Client) ListDirectory(ctx context.Context, path string) ([]uart.DirectoryEntry, error) {
	var ents []uart.DirectoryEntry
	for i := 0; i <= int(^uint16(0)); i++ {
		ent, err := c.ReadDirectory(ctx, path, uint16(i))
		if errors.Is(err, uart.ErrNotAvailable) {
			if i == 0 {
				// Either an empty directory or a missing one; tell them apart.
				if _, statErr := c.StatFile(ctx, path); statErr != nil {
					return nil, statErr
				}
			}
			break
		} else if err != nil {
			return nil, err
		}
		ents = append(ents, ent)
	}
	return ents, nil
}

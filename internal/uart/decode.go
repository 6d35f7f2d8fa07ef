package uart

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// Decoder reads commands from a byte stream. Decoder resynchronizes on
// framing noise: bytes outside of a frame and unknown command identifiers are
// discarded rather than reported as errors. Errors from the underlying
// stream are always returned.
type Decoder struct {
	log log.Logger
	r   *Reader

	skipped atomic.Uint64
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(l log.Logger, r io.Reader) *Decoder {
	if l == nil {
		l = log.NewNopLogger()
	}
	return &Decoder{log: l, r: NewReader(r)}
}

// Skipped returns the number of bytes discarded while searching for a
// frame. Skipped is safe to call concurrently with Decode.
func (d *Decoder) Skipped() uint64 {
	return d.skipped.Load()
}

// Decode blocks until a complete command has been read. A stream that never
// contains a valid frame keeps Decode reading until the stream fails.
func (d *Decoder) Decode() (Command, error) {
	var framed bool // A sentinel was just read
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if !framed {
			if b == RequestSentinel {
				framed = true
			} else {
				d.skipped.Inc()
			}
			continue
		}

		framed = false
		id := CommandID(b)
		if !id.Valid() {
			// The previous sentinel was noise. A repeated sentinel may start the
			// real frame, so it isn't discarded.
			d.skipped.Inc()
			if b == RequestSentinel {
				framed = true
				continue
			}
			level.Debug(d.log).Log("msg", "ignoring unknown command identifier", "id", b)
			d.skipped.Inc()
			continue
		}

		cmd, err := d.decodeFields(id)
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", id, err)
		}
		return cmd, nil
	}
}

func (d *Decoder) decodeFields(id CommandID) (Command, error) {
	switch id {
	case CommandIdentify:
		nonce, err := d.r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &IdentifyCommand{Nonce: nonce}, nil

	case CommandSendFile:
		var (
			cmd SendFileCommand
			err error
		)
		if cmd.Path, err = d.r.ReadString(); err != nil {
			return nil, err
		}
		if cmd.Offset, err = d.r.ReadUint32(); err != nil {
			return nil, err
		}
		if cmd.Length, err = d.r.ReadUint16(); err != nil {
			return nil, err
		}
		return &cmd, nil

	case CommandRequestChar:
		return &RequestCharCommand{}, nil

	case CommandPrintChar:
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		return &PrintCharCommand{Char: c}, nil

	case CommandStatFile:
		path, err := d.r.ReadString()
		if err != nil {
			return nil, err
		}
		return &StatFileCommand{Path: path}, nil

	case CommandReadDirectory:
		var (
			cmd ReadDirectoryCommand
			err error
		)
		if cmd.Index, err = d.r.ReadUint16(); err != nil {
			return nil, err
		}
		if cmd.Path, err = d.r.ReadString(); err != nil {
			return nil, err
		}
		return &cmd, nil

	default:
		return nil, fmt.Errorf("unexpected command %s", id)
	}
}

// ReadResponse reads the response to a command with the given id. Bytes
// before the response sentinel are discarded. If the server reported
// StatusNotAvailable, ReadResponse returns ErrNotAvailable.
func ReadResponse(r *Reader, id CommandID) (Response, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == ResponseSentinel {
			break
		}
	}

	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch Status(b) {
	case StatusOK:
	case StatusNotAvailable:
		return nil, ErrNotAvailable
	default:
		return nil, fmt.Errorf("%s: %w", Status(b), ErrUnknownStatus)
	}

	switch id {
	case CommandIdentify:
		v, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &IdentifyResponse{Value: v}, nil

	case CommandSendFile:
		data, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return &SendFileResponse{Data: data}, nil

	case CommandRequestChar:
		c, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return &RequestCharResponse{Code: c}, nil

	case CommandPrintChar:
		return nil, nil

	case CommandStatFile:
		isDir, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadLegacyUint32()
		if err != nil {
			return nil, err
		}
		return &StatFileResponse{IsDir: isDir, Length: uint64(length)}, nil

	case CommandReadDirectory:
		var (
			ent DirectoryEntry
			err error
		)
		if ent.Name, err = r.ReadString(); err != nil {
			return nil, err
		}
		if ent.IsDir, err = r.ReadBool(); err != nil {
			return nil, err
		}
		length, err := r.ReadLegacyUint32()
		if err != nil {
			return nil, err
		}
		ent.Length = uint64(length)
		return &ReadDirectoryResponse{Entry: ent}, nil

	default:
		return nil, fmt.Errorf("unexpected command %s", id)
	}
}

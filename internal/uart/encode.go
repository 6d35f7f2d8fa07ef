package uart

import "fmt"

// WriteCommand writes a complete request frame for cmd. The frame may be
// buffered by w's stream; callers flush the transport afterwards.
func WriteCommand(w *Writer, cmd Command) error {
	if err := w.WriteByte(RequestSentinel); err != nil {
		return err
	}
	if err := w.WriteByte(byte(cmd.ID())); err != nil {
		return err
	}

	switch cmd := cmd.(type) {
	case *IdentifyCommand:
		return w.WriteUint16(cmd.Nonce)

	case *SendFileCommand:
		if err := w.WriteString(cmd.Path); err != nil {
			return err
		}
		// Requests use the symmetric layout ReadUint32 expects.
		if err := w.WriteUint16(uint16(cmd.Offset)); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(cmd.Offset >> 16)); err != nil {
			return err
		}
		return w.WriteUint16(cmd.Length)

	case *RequestCharCommand:
		return nil

	case *PrintCharCommand:
		return w.WriteByte(cmd.Char)

	case *StatFileCommand:
		return w.WriteString(cmd.Path)

	case *ReadDirectoryCommand:
		if err := w.WriteUint16(cmd.Index); err != nil {
			return err
		}
		return w.WriteString(cmd.Path)

	default:
		return fmt.Errorf("unexpected command %T", cmd)
	}
}

// WriteStatus writes the response sentinel followed by s. A StatusOK frame
// must be followed by WritePayload.
func WriteStatus(w *Writer, s Status) error {
	if err := w.WriteByte(ResponseSentinel); err != nil {
		return err
	}
	return w.WriteByte(byte(s))
}

// WritePayload writes the payload of a successful response. A nil resp
// writes nothing.
func WritePayload(w *Writer, resp Response) error {
	switch resp := resp.(type) {
	case nil:
		return nil

	case *IdentifyResponse:
		return w.WriteUint16(resp.Value)

	case *SendFileResponse:
		return w.WriteBytes(resp.Data)

	case *RequestCharResponse:
		return w.WriteByte(resp.Code)

	case *StatFileResponse:
		if err := w.WriteBool(resp.IsDir); err != nil {
			return err
		}
		return w.WriteUint32(uint32(resp.Length))

	case *ReadDirectoryResponse:
		if err := w.WriteString(resp.Entry.Name); err != nil {
			return err
		}
		if err := w.WriteBool(resp.Entry.IsDir); err != nil {
			return err
		}
		return w.WriteUint32(uint32(resp.Entry.Length))

	default:
		return fmt.Errorf("unexpected response %T", resp)
	}
}

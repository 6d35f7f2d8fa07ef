package uart

import "fmt"

// CommandID identifies a command on the wire.
type CommandID uint8

// Supported commands.
const (
	CommandIdentify      CommandID = 0
	CommandSendFile      CommandID = 1
	CommandRequestChar   CommandID = 2
	CommandPrintChar     CommandID = 3
	CommandStatFile      CommandID = 4
	CommandReadDirectory CommandID = 5
)

var commandNames = map[CommandID]string{
	CommandIdentify:      "Identify",
	CommandSendFile:      "SendFile",
	CommandRequestChar:   "RequestChar",
	CommandPrintChar:     "PrintChar",
	CommandStatFile:      "StatFile",
	CommandReadDirectory: "ReadDirectory",
}

// Valid returns true if id is a known command.
func (id CommandID) Valid() bool {
	_, ok := commandNames[id]
	return ok
}

// String implements fmt.Stringer.
func (id CommandID) String() string {
	if name, ok := commandNames[id]; ok {
		return name
	}
	return fmt.Sprintf("CommandID(%d)", uint8(id))
}

// Status is the outcome of a command, sent right after the response
// sentinel.
type Status uint8

const (
	StatusOK           Status = 0 // Command succeeded; a payload follows.
	StatusNotAvailable Status = 1 // Resource not available; no payload follows.
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotAvailable:
		return "not_available"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Protocol types. Each command has a request type and, when it carries a
// payload, a response type.
type (
	// IdentifyCommand is a liveness check. The server answers with the
	// bitwise complement of Nonce.
	IdentifyCommand struct {
		Nonce uint16
	}
	IdentifyResponse struct {
		Value uint16
	}

	// SendFileCommand requests a range of a file. A Length of 0 requests
	// everything from Offset to the end of the file.
	SendFileCommand struct {
		Path   string
		Offset uint32
		Length uint16
	}
	SendFileResponse struct {
		Data []byte
	}

	// RequestCharCommand polls the host keyboard for one key.
	RequestCharCommand struct{}
	RequestCharResponse struct {
		Code byte // Key code in the client's key space
	}

	// PrintCharCommand prints a character on the host console. It has no
	// response payload.
	PrintCharCommand struct {
		Char byte // ISO-8859-1 code point
	}

	StatFileCommand struct {
		Path string
	}
	StatFileResponse struct {
		IsDir  bool
		Length uint64 // Truncated to 32 bits on the wire
	}

	// ReadDirectoryCommand requests the Index-th entry of a directory.
	ReadDirectoryCommand struct {
		Index uint16
		Path  string
	}
	ReadDirectoryResponse struct {
		Entry DirectoryEntry
	}
)

// DirectoryEntry describes a single entry of a directory.
type DirectoryEntry struct {
	Name   string
	Length uint64
	IsDir  bool
}

func (*IdentifyCommand) ID() CommandID      { return CommandIdentify }
func (*SendFileCommand) ID() CommandID      { return CommandSendFile }
func (*RequestCharCommand) ID() CommandID   { return CommandRequestChar }
func (*PrintCharCommand) ID() CommandID     { return CommandPrintChar }
func (*StatFileCommand) ID() CommandID      { return CommandStatFile }
func (*ReadDirectoryCommand) ID() CommandID { return CommandReadDirectory }

//
// Command / Response type implementations
//

func (*IdentifyCommand) uartCommand()        {}
func (*IdentifyResponse) uartResponse()      {}
func (*SendFileCommand) uartCommand()        {}
func (*SendFileResponse) uartResponse()      {}
func (*RequestCharCommand) uartCommand()     {}
func (*RequestCharResponse) uartResponse()   {}
func (*PrintCharCommand) uartCommand()       {}
func (*StatFileCommand) uartCommand()        {}
func (*StatFileResponse) uartResponse()      {}
func (*ReadDirectoryCommand) uartCommand()   {}
func (*ReadDirectoryResponse) uartResponse() {}

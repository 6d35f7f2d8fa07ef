// Package uart implements the uartfs protocol: a small request/response
// protocol that lets a legacy computer on the other end of a serial line read
// files, list directories and use the host's terminal.
//
// Requests are framed by a '?' sentinel followed by a command identifier and
// the command's fields. Responses are framed by a '!' sentinel followed by a
// Status and, for StatusOK, a command-specific payload. Multi-byte integers
// are little endian and text is ISO-8859-1 with a 16-bit length prefix.
//
// uart can be used with any byte transport. See the transport package for
// serial and stream implementations.
package uart

import "io"

// Frame sentinels.
const (
	RequestSentinel  byte = '?'
	ResponseSentinel byte = '!'
)

// MaxPayload is the largest byte payload a response can carry. Payload
// lengths are sent as 16-bit values.
const MaxPayload = 1<<16 - 1

// Command is a fully decoded request sent by the client.
type Command interface {
	// ID returns the identifier byte used to send the command.
	ID() CommandID

	uartCommand()
}

// Response is the payload of a successful response. Commands which have no
// payload use a nil Response.
type Response interface {
	uartResponse()
}

// Transport is a duplex byte stream used to carry protocol messages. Reads
// must block until data is available. Writes may be buffered until Flush is
// called.
type Transport interface {
	io.Reader
	io.Writer

	// Flush sends any buffered data to the other side of the connection.
	Flush() error

	// Close the connection. Close unblocks any pending Read.
	Close() error
}

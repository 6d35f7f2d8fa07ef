package uart

import "errors"

var (
	// ErrNotAvailable is returned by handlers (and reported by clients) when
	// the requested resource can't be provided. It is sent to the peer as
	// StatusNotAvailable.
	ErrNotAvailable = errors.New("uart: not available")

	// ErrUnrepresentable is returned when text contains characters outside of
	// ISO-8859-1.
	ErrUnrepresentable = errors.New("uart: text not representable as ISO-8859-1")

	// ErrPayloadTooLarge is returned when a byte payload or text is longer than
	// MaxPayload.
	ErrPayloadTooLarge = errors.New("uart: payload too large")

	// ErrUnknownStatus is returned by clients when the server sent a status
	// byte outside of the known set.
	ErrUnknownStatus = errors.New("uart: unknown status")
)

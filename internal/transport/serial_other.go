//go:build !linux

package transport

import (
	"errors"
	"io"
)

type serialDevice struct {
	io.ReadWriteCloser
}

func openSerial(path string, baud int) (*serialDevice, error) {
	return nil, errors.New("serial devices are only supported on linux")
}

func (d *serialDevice) Drain() error { return nil }

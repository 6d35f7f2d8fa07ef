//go:build !linux

package terminal

import "golang.org/x/term"

func makeCbreak(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}

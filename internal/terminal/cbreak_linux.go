package terminal

import "golang.org/x/sys/unix"

// makeCbreak disables line buffering and echo. Output processing and signal
// keys stay enabled so printed characters and Ctrl-C keep working.
func makeCbreak(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHONL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

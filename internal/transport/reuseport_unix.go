//go:build !windows

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setReusePort sets SO_REUSEADDR and SO_REUSEPORT on the raw socket before
// bind, grounded on the teacher's own golang.org/x/sys dependency
// (internal/transport/udp.go's F-9 note on SO_REUSEPORT for multi-listener
// port sharing).
func setReusePort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = err
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

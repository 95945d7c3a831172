//go:build windows

package transport

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// setReusePort sets SO_REUSEADDR only; Windows has no SO_REUSEPORT
// equivalent and SO_REUSEADDR alone is sufficient for multiple UDP
// sockets to share a port there.
func setReusePort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

//go:build !linux

package diag

import "net"

// Lookup is a no-op on platforms without TCP_INFO support via getsockopt
// in this form; Linux is the only one with this exact struct layout
// available through golang.org/x/sys/unix today.
func Lookup(conn net.Conn) (Info, bool) {
	return Info{}, false
}

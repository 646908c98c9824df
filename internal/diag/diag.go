//go:build linux

// Package diag does a best-effort TCP_INFO lookup on a just-accepted
// connection for logging purposes. m-lab/tcp-info scans the whole
// socket table out-of-process via raw NETLINK_INET_DIAG messages; here
// we only ever want the stats for one socket we already hold an fd
// for, so the direct per-socket getsockopt(TCP_INFO) golang.org/x/sys
// call is the proportionate tool — no netlink request needs crafting.
package diag

import (
	"net"

	"golang.org/x/sys/unix"
)

// Lookup returns TCP_INFO for conn, or ok == false if conn isn't a TCP
// socket or the syscall fails (permission, unsupported platform,
// already closed, etc). Callers must treat a false here as routine, not
// an error: diagnostics are never allowed to block or fail an accept.
func Lookup(conn net.Conn) (Info, bool) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return Info{}, false
	}

	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return Info{}, false
	}

	var info Info
	var gotIt bool

	err = raw.Control(func(fd uintptr) {
		ti, ierr := unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
		if ierr != nil {
			return
		}
		info = Info{
			RTTMicros:        ti.Rtt,
			RTTVarMicros:     ti.Rttvar,
			Retransmits:      ti.Retransmits,
			TotalRetransmits: ti.Total_retrans,
		}
		gotIt = true
	})
	if err != nil {
		return Info{}, false
	}

	return info, gotIt
}

package serve

import (
	"net"
	"os"
	"os/exec"
	"syscall"

	rrerrors "github.com/roadrunner-server/errors"
	"golang.org/x/sys/unix"

	"github.com/yinetd/yinetd/config"
)

// child is a tracked, running program spawned for one accepted
// connection. It carries no reference back to the connection itself —
// once exec has happened the child owns the socket end to end and the
// parent keeps only enough to reap it.
type child struct {
	pid int
	cmd *exec.Cmd
}

// spawnChild execs svc's configured program with the accepted
// connection duped onto its stdin/stdout. conn.File() dups the socket
// into a new *os.File that os/exec then dup2s onto fd 0/1 during
// fork+exec; File() itself resets the dup to blocking mode, so the
// child never sees a non-blocking stdin/stdout.
func spawnChild(svc *config.Service, conn net.Conn) (*child, error) {
	const op = rrerrors.Op("spawn_child")

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, rrerrors.E(op, rrerrors.Op(svc.Name()), rrerrors.Str("connection is not TCP"))
	}

	connFile, err := tcpConn.File()
	if err != nil {
		return nil, rrerrors.E(op, rrerrors.Op(svc.Name()), err)
	}
	defer connFile.Close()

	cmd := exec.Command(svc.Server(), svc.ServerArgs()...)
	cmd.Stdin = connFile
	cmd.Stdout = connFile
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if uid, ok := svc.UID(); ok {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{Uid: uid},
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, rrerrors.E(op, rrerrors.Op(svc.Name()), err)
	}

	return &child{pid: cmd.Process.Pid, cmd: cmd}, nil
}

// reapResult is the outcome of one non-blocking wait attempt.
type reapResult int

const (
	stillRunning reapResult = iota
	exited
	waitError
)

// tryWait performs a single non-blocking wait4(pid, WNOHANG) on c. It
// never blocks: a still-running child is reported immediately.
func (c *child) tryWait() (reapResult, *unix.WaitStatus, error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(c.pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return waitError, nil, err
	}
	if wpid == 0 {
		return stillRunning, nil, nil
	}
	return exited, &ws, nil
}

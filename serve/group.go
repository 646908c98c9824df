// Package serve implements the event-driven acceptor and process
// launcher. A readiness poll set is realized here as a goroutine-per-
// listener Accept loop feeding a single dispatcher goroutine over a
// channel, rather than a hand-rolled epoll/kqueue poll set — Go's net
// package already multiplexes socket readiness through the runtime's
// own netpoller, so reimplementing that with raw syscalls would just
// duplicate what net.Listener.Accept already gives for free. What
// still holds, observably: single-threaded cooperative dispatch of
// accept/spawn/reap, bounded by MaxWait between reap passes, no two
// acceptors processed concurrently — only the dispatcher goroutine
// below ever touches a runner's child list or calls spawnChild.
package serve

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	rrerrors "github.com/roadrunner-server/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yinetd/yinetd/config"
	"github.com/yinetd/yinetd/internal/diag"
	"github.com/yinetd/yinetd/internal/metrics"
	"github.com/yinetd/yinetd/internal/netutil"
)

// runner is the runtime state for one configured service: its bound
// listener and the children it has spawned that haven't been reaped
// yet. No runner state is ever shared across services.
type runner struct {
	svc *config.Service
	ln  net.Listener

	mu       sync.Mutex
	children []*child
}

type accepted struct {
	r    *runner
	conn net.Conn
}

// Group is the runtime form of a config.Config: one listener and one
// live-children list per service, multiplexed by a single dispatcher
// goroutine. The zero Group is not usable — build one with NewGroup.
type Group struct {
	log     *zap.Logger
	metrics *metrics.Collector

	runners    []*runner
	acceptedCh chan accepted
	errCh      chan error
}

// NewGroup builds a Group for cfg. log must not be nil (pass
// zap.NewNop() in tests); mcol may be nil, in which case metrics are
// silently dropped.
func NewGroup(cfg *config.Config, log *zap.Logger, mcol *metrics.Collector) *Group {
	runners := make([]*runner, len(cfg.Services()))
	for i, svc := range cfg.Services() {
		runners[i] = &runner{svc: svc}
	}

	return &Group{
		log:        log,
		metrics:    mcol,
		runners:    runners,
		acceptedCh: make(chan accepted),
		errCh:      make(chan error, 1),
	}
}

// Listen binds every configured service's listener concurrently — each
// bind is independent I/O with no shared state, so there is no reason
// to serialize it the way the readiness loop itself must be
// serialized. Each runner's position in g.runners is its implicit
// token: once bound, r.ln is read-only for the lifetime of the Group.
func (g *Group) Listen(ctx context.Context) error {
	const op = rrerrors.Op("serve_listen")

	var eg errgroup.Group

	for _, r := range g.runners {
		r := r
		eg.Go(func() error {
			ln, err := netutil.Listen(r.svc)
			if err != nil {
				return rrerrors.E(op, rrerrors.Op(r.svc.Name()), err)
			}
			r.ln = ln
			g.log.Debug("listener bound", zap.String("service", r.svc.Name()), zap.Stringer("addr", ln.Addr()))
			return nil
		})
	}

	return eg.Wait()
}

// Serve runs the readiness loop until ctx is cancelled or a fatal
// error occurs (an accept error other than the listener being closed
// for shutdown). Listen must have been called first.
func (g *Group) Serve(ctx context.Context) error {
	for _, r := range g.runners {
		r := r
		go g.acceptLoop(ctx, r)
	}

	ticker := time.NewTicker(MaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-g.errCh:
			return err
		case acc := <-g.acceptedCh:
			g.handleAccepted(acc)
		case <-ticker.C:
			g.reapAll()
		}
	}
}

// Stop closes every bound listener, which unblocks and terminates each
// acceptLoop goroutine. It does not wait for outstanding children —
// those are independent processes, not owned by the parent beyond
// reaping them.
func (g *Group) Stop() error {
	var err error
	for _, r := range g.runners {
		if r.ln == nil {
			continue
		}
		if cerr := r.ln.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}

func (g *Group) acceptLoop(ctx context.Context, r *runner) {
	const op = rrerrors.Op("accept_loop")

	for {
		conn, err := r.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case g.errCh <- rrerrors.E(op, rrerrors.Op(r.svc.Name()), err):
			case <-ctx.Done():
			}
			return
		}

		select {
		case g.acceptedCh <- accepted{r: r, conn: conn}:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// handleAccepted runs entirely on the dispatcher goroutine: no two
// acceptors ever run concurrently, so only one accepted connection is
// ever being spawned at a time, regardless of how many listeners are
// readable.
func (g *Group) handleAccepted(acc accepted) {
	r := acc.r
	conn := acc.conn
	connID := uuid.NewString()

	g.log.Debug("accepted connection",
		zap.String("service", r.svc.Name()),
		zap.String("remote", conn.RemoteAddr().String()),
		zap.String("connection_id", connID),
	)
	if info, ok := diag.Lookup(conn); ok {
		g.log.Debug("connection tcp_info",
			zap.String("service", r.svc.Name()),
			zap.String("connection_id", connID),
			zap.Uint32("rtt_us", info.RTTMicros),
			zap.Uint32("rttvar_us", info.RTTVarMicros),
			zap.Uint32("retransmits", uint32(info.Retransmits)),
		)
	}
	g.metrics.Accept(r.svc.Name())

	c, err := spawnChild(r.svc, conn)
	_ = conn.Close()
	if err != nil {
		g.log.Error("failed to spawn child",
			zap.String("service", r.svc.Name()),
			zap.String("server", r.svc.Server()),
			zap.String("connection_id", connID),
			zap.Error(err),
		)
		g.metrics.SpawnFailure(r.svc.Name())
		return
	}

	r.mu.Lock()
	r.children = append(r.children, c)
	live := len(r.children)
	r.mu.Unlock()

	g.metrics.SetLiveChildren(r.svc.Name(), live)
}

// reapAll is invoked once per MaxWait tick: a non-blocking wait
// on every tracked child, dropping anything that has exited or whose
// wait returned an error.
func (g *Group) reapAll() {
	for _, r := range g.runners {
		r.mu.Lock()
		remaining := r.children[:0]
		for _, c := range r.children {
			res, ws, err := c.tryWait()
			switch res {
			case stillRunning:
				remaining = append(remaining, c)
			case exited:
				g.log.Info("child exited",
					zap.String("service", r.svc.Name()),
					zap.Int("pid", c.pid),
					zap.Int("status", ws.ExitStatus()),
				)
				g.metrics.Reaped(r.svc.Name())
			case waitError:
				g.log.Info("wait failed for child",
					zap.String("service", r.svc.Name()),
					zap.Int("pid", c.pid),
					zap.Error(err),
				)
				g.metrics.Reaped(r.svc.Name())
			}
		}
		r.children = remaining
		live := len(r.children)
		r.mu.Unlock()

		g.metrics.SetLiveChildren(r.svc.Name(), live)
	}
}

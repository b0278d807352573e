package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"quotestream/internal/bus"
	"quotestream/internal/flog"
	"quotestream/internal/session"
)

// workerPair is the Applier+Streamer spawned by one STREAM/RESTREAM.
// Re-streaming replaces the pair outright rather than reconfiguring it
// in place: the old pair keeps running against its own Snapshot and
// State objects until it observes Cancelled on its own schedule, per
// the Open Question decision recorded in DESIGN.md (no barrier on the
// STREAM/RESTREAM race).
type workerPair struct {
	snapshot      *session.Snapshot
	applierState  *session.State
	streamerState *session.State
	liveness      *session.Liveness
}

// Control is one TCP control session: Idle -> AwaitCommand -> Streaming,
// per spec.md §4.5. Its Run loop never applies a read deadline to the
// control socket — it blocks on each command line until the peer sends
// one or disconnects.
type Control struct {
	conn    net.Conn
	udpConn *net.UDPConn
	bus     *bus.Bus

	mu      sync.Mutex
	current *workerPair
}

// NewControl wires a Control session to its own cloned UDP handle.
func NewControl(conn net.Conn, udpConn *net.UDPConn, b *bus.Bus) *Control {
	return &Control{conn: conn, udpConn: udpConn, bus: b}
}

// Run serves one connection until EOF, a read error, or ctx ends.
func (c *Control) Run(ctx context.Context) {
	defer c.conn.Close()
	defer c.udpConn.Close()
	defer c.cancelCurrent()

	exited := make(chan struct{})
	defer close(exited)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-exited:
		}
	}()

	if _, err := io.WriteString(c.conn, "Welcome to quotation stream!\n"); err != nil {
		flog.Debugf("control: greeting to %s failed: %v", c.conn.RemoteAddr(), err)
		return
	}

	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		reply := c.handle(ctx, line)
		if _, err := io.WriteString(c.conn, reply); err != nil {
			return
		}
	}
}

func (c *Control) handle(ctx context.Context, line string) string {
	fields := strings.Fields(line)
	verb := strings.ToUpper(fields[0])

	switch verb {
	case "STREAM", "RESTREAM":
		addr, tickers, ok := parseStreamArgs(fields[1:])
		if !ok {
			return "Error command stream\n"
		}
		if !c.restream(ctx, addr, tickers) {
			return "Error command stream\n"
		}
		return "OK Stream\n"
	case "STOP":
		if !c.stop() {
			return "Thread not running\n"
		}
		return "OK Stop\n"
	default:
		return "Error command\n"
	}
}

// parseStreamArgs validates "udp://host:port" and a non-empty,
// comma-separated ticker list with no empty components. Both the
// missing prefix and empty-component cases are the stricter of the two
// behaviors spec.md §9 leaves open, per DESIGN.md's decision.
func parseStreamArgs(args []string) (addr string, tickers []string, ok bool) {
	if len(args) != 2 {
		return "", nil, false
	}

	const prefix = "udp://"
	if !strings.HasPrefix(args[0], prefix) {
		return "", nil, false
	}
	addr = strings.TrimPrefix(args[0], prefix)
	if addr == "" {
		return "", nil, false
	}

	for _, t := range strings.Split(args[1], ",") {
		if t == "" {
			return "", nil, false
		}
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		return "", nil, false
	}
	return addr, tickers, true
}

// restream cancels any running worker pair and spawns a fresh one. It
// reports false if addr failed to resolve.
func (c *Control) restream(ctx context.Context, addr string, tickers []string) bool {
	c.cancelCurrent()

	snap := session.NewSnapshot()
	snap.Reset(tickers)

	pair := &workerPair{
		snapshot:      snap,
		applierState:  session.NewState(),
		streamerState: session.NewState(),
		liveness:      session.NewLiveness(),
	}

	streamer, err := NewStreamer(c.udpConn, addr, pair.snapshot, pair.streamerState, pair.applierState, pair.liveness)
	if err != nil {
		flog.Errorf("control: bad stream target %q: %v", addr, err)
		return false
	}
	applier := NewApplier(c.bus, pair.snapshot, pair.applierState)

	c.mu.Lock()
	c.current = pair
	c.mu.Unlock()

	pair.applierState.Start()
	go func() {
		if err := applier.Run(ctx); err != nil {
			flog.Debugf("control: applier exited: %v", err)
		}
	}()

	pair.streamerState.Start()
	go func() {
		if err := streamer.Run(ctx); err != nil {
			flog.Debugf("control: streamer exited: %v", err)
		}
	}()

	return true
}

// stop cancels the running worker pair, reporting false when none was
// running.
func (c *Control) stop() bool {
	c.mu.Lock()
	running := c.current != nil
	c.mu.Unlock()
	if !running {
		return false
	}
	c.cancelCurrent()
	return true
}

func (c *Control) cancelCurrent() {
	c.mu.Lock()
	cur := c.current
	c.current = nil
	c.mu.Unlock()
	if cur != nil {
		cur.streamerState.Cancel()
		cur.applierState.Cancel()
	}
}

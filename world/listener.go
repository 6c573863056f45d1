package world

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/warren/interp"
)

// HandlerName is the registry binding the listener dispatches lines to:
// a function of (connection, line).
const HandlerName = "onLine"

// ConnectHandlerName is invoked with (connection) when a connection opens.
const ConnectHandlerName = "onConnect"

// Listener accepts line-oriented TCP connections and surfaces them to the
// interpreter as Connection pseudo-objects. Each received line spawns the
// world's onLine handler; a dropped connection unblocks threads waiting on
// it. Connection objects hold their socket in an unserialized slot, so
// after a restore they come back disconnected and users simply reconnect.
type Listener struct {
	worker *Worker
	ln     net.Listener
	nextID atomic.Int64

	mu    sync.Mutex
	conns map[int64]net.Conn

	done chan struct{}
}

// NewListener starts accepting on addr.
func NewListener(worker *Worker, addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		worker: worker,
		ln:     ln,
		conns:  make(map[int64]net.Conn),
		done:   make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting and closes every open connection.
func (l *Listener) Close() error {
	close(l.done)
	err := l.ln.Close()
	l.mu.Lock()
	for _, c := range l.conns {
		c.Close()
	}
	l.mu.Unlock()
	return err
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				return
			}
		}
		go l.serve(conn)
	}
}

// serve reads lines from one connection, dispatching each into the world.
func (l *Listener) serve(conn net.Conn) {
	id := l.nextID.Add(1)
	l.mu.Lock()
	l.conns[id] = conn
	l.mu.Unlock()

	// Build the Connection object and announce it on the worker
	// goroutine.
	obj, _ := l.worker.Do(func(i *interp.Interpreter) interface{} {
		o := i.NewConnectionObject(conn, id, conn.RemoteAddr().String())
		l.dispatch(i, ConnectHandlerName, o)
		return o
	})
	connObj, _ := obj.(*interp.Object)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		l.worker.Do(func(i *interp.Interpreter) interface{} {
			l.dispatch(i, HandlerName, connObj, interp.String(line))
			return nil
		})
	}

	conn.Close()
	l.mu.Lock()
	delete(l.conns, id)
	l.mu.Unlock()

	// Detach the host resource and wake any thread waiting on the
	// connection.
	l.worker.Do(func(i *interp.Interpreter) interface{} {
		if connObj != nil {
			if sd, ok := connObj.Data().(*interp.SocketData); ok {
				sd.Backing = nil
			}
		}
		i.NotifyReady(interp.ConnBlocker(id))
		return nil
	})
}

// dispatch spawns the named registry handler with args, if bound.
func (l *Listener) dispatch(i *interp.Interpreter, name string, args ...interp.Value) {
	fn := i.Registry().Lookup(name)
	if fn == nil || !fn.Callable() {
		return
	}
	i.SpawnFunction(fn, args)
}

package world

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/chazu/warren/interp"
)

// lineRecorder captures dispatched lines via a seeded native.
type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func TestListenerDispatchesLines(t *testing.T) {
	rec := &lineRecorder{}
	i := interp.New(interp.WithNativeTable(func(nt *interp.NativeTable) {
		nt.Register("test.onLine", func(i *interp.Interpreter, th *interp.Thread, this interp.Value, args []interp.Value) (interp.Value, *interp.UserError) {
			if len(args) >= 2 {
				rec.add(string(interp.ToString(args[1])))
			}
			// Greet back through the connection object.
			if conn, ok := args[0].(*interp.Object); ok {
				if sd, ok := conn.Data().(*interp.SocketData); ok {
					if w, ok := sd.Backing.(net.Conn); ok {
						w.Write([]byte("ack\n"))
					}
				}
			}
			return interp.Undefined{}, nil
		})
	}))
	i.Registry().Bind(HandlerName, i.Natives().Lookup("test.onLine"))

	w := NewWorker(i, 1000)
	defer w.Stop()

	l, err := NewListener(w, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello world\r\n")); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("no ack: %v", err)
	}
	if reply != "ack\n" {
		t.Errorf("reply = %q", reply)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := rec.snapshot(); len(lines) == 1 {
			if lines[0] != "hello world" {
				t.Errorf("line = %q", lines[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("handler never saw the line")
}

func TestListenerUnblocksOnDisconnect(t *testing.T) {
	var waited sync.WaitGroup
	waited.Add(1)
	released := make(chan struct{})

	i := interp.New(interp.WithNativeTable(func(nt *interp.NativeTable) {
		nt.Register("test.onConnect", func(i *interp.Interpreter, th *interp.Thread, this interp.Value, args []interp.Value) (interp.Value, *interp.UserError) {
			// Park this fiber until the connection drops.
			if conn, ok := args[0].(*interp.Object); ok {
				idV, _ := conn.Get("id")
				th.Block(interp.ConnBlocker(int64(interp.ToNumber(idV))))
				waited.Done()
			}
			return interp.Undefined{}, nil
		})
	}))
	i.Registry().Bind(ConnectHandlerName, i.Natives().Lookup("test.onConnect"))

	w := NewWorker(i, 1000)
	defer w.Stop()

	l, err := NewListener(w, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	waited.Wait()

	go func() {
		// Watch for the blocked fiber to come back runnable and finish.
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			done := true
			w.Do(func(i *interp.Interpreter) interface{} {
				for _, th := range i.Scheduler().Threads() {
					if th.Status() == interp.StatusBlocked {
						done = false
					}
				}
				return nil
			})
			if done {
				close(released)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	conn.Close()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("fiber stayed blocked after disconnect")
	}
}

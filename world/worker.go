// Package world wraps a running interpreter in its operator surfaces: a
// Connect RPC server, a line-oriented TCP listener whose connections
// surface as interpreter objects, and the single-goroutine worker that
// serializes all interpreter access.
package world

import (
	"fmt"
	"time"

	"github.com/chazu/warren/interp"
)

// workerRequest represents a unit of work to be executed on the
// interpreter goroutine.
type workerRequest struct {
	fn   func(*interp.Interpreter) interface{}
	done chan workerResult
}

// workerResult holds the return value from an interpreter operation.
type workerResult struct {
	value interface{}
	err   error
}

// Worker serializes all interpreter access through a single goroutine and
// pumps the scheduler between requests. The interpreter is single-threaded;
// every RPC handler and the listener must go through the worker to avoid
// data races.
type Worker struct {
	interp     *interp.Interpreter
	stepBudget int
	requests   chan workerRequest
	quit       chan struct{}
	stopped    chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(i *interp.Interpreter, stepBudget int) *Worker {
	if stepBudget <= 0 {
		stepBudget = 1000
	}
	w := &Worker{
		interp:     i,
		stepBudget: stepBudget,
		requests:   make(chan workerRequest, 64),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop alternates between serving requests and advancing the scheduler.
// When no thread is runnable it sleeps until the next timer or request.
func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
			continue
		case <-w.quit:
			return
		default:
		}

		sched := w.interp.Scheduler()
		if sched.RunnableCount() > 0 {
			w.interp.Tick(w.stepBudget)
			continue
		}

		// Idle: wait for a request, shutdown, or the next sleeper.
		var timer <-chan time.Time
		if wake := sched.NextWake(); wake > 0 {
			delay := time.Duration(wake-w.interp.Clock().NowMillis()) * time.Millisecond
			if delay < time.Millisecond {
				delay = time.Millisecond
			}
			timer = time.After(delay)
		}
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		case <-timer:
		}
	}
}

// execute runs a function on the interpreter, recovering from panics.
func (w *Worker) execute(fn func(*interp.Interpreter) interface{}) workerResult {
	var result workerResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.interp)
	}()
	return result
}

// Do submits a function for execution on the interpreter goroutine and
// blocks until it completes.
func (w *Worker) Do(fn func(*interp.Interpreter) interface{}) (interface{}, error) {
	req := workerRequest{
		fn:   fn,
		done: make(chan workerResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine and waits for it to exit.
func (w *Worker) Stop() {
	close(w.quit)
	<-w.stopped
}

// Interp returns the underlying interpreter for read-only metadata access
// that doesn't touch interpreter state.
func (w *Worker) Interp() *interp.Interpreter {
	return w.interp
}

package interp

// ThreadStatus is the scheduling state of a thread.
type ThreadStatus string

const (
	StatusRunnable ThreadStatus = "runnable"
	StatusSleeping ThreadStatus = "sleeping"
	StatusBlocked  ThreadStatus = "blocked"
	StatusDone     ThreadStatus = "done"
)

// parkKind records a park request a native raised during the current step.
type parkKind uint8

const (
	parkNone parkKind = iota
	parkYield
	parkSleep
	parkBlock
)

// Thread is one cooperative fiber: a suspended state tree plus scheduling
// bookkeeping. Exactly one thread is current while the engine steps.
type Thread struct {
	id     int64
	status ThreadStatus

	// wakeAt is the wall-clock wake time in Unix milliseconds while
	// sleeping; blocker identifies the resource while blocked.
	wakeAt  int64
	blocker string

	// cur is the deepest in-progress state; its parent chain is the rest
	// of the suspended continuation.
	cur     state
	pending *completion

	// value is the thread's completion value: the result of the last
	// expression statement it executed.
	value Value
	// uncaught is the thrown value of a thread that died on an uncaught
	// throw.
	uncaught Value

	interp *Interpreter
	killed bool

	parkKind    parkKind
	parkWake    int64
	parkBlocker string
}

// ID returns the thread's identifier.
func (t *Thread) ID() int64 { return t.id }

// Status returns the thread's scheduling status.
func (t *Thread) Status() ThreadStatus { return t.status }

// Value returns the thread's completion value.
func (t *Thread) Value() Value {
	if t.value == nil {
		return Undefined{}
	}
	return t.value
}

// Uncaught returns the value of an uncaught throw that killed the thread,
// or nil.
func (t *Thread) Uncaught() Value { return t.uncaught }

// StackDepth returns the number of active calls on the thread's state
// chain.
func (t *Thread) StackDepth() int {
	depth := 0
	for walk := t.cur; walk != nil; walk = walk.parentState() {
		if c, ok := walk.(*stateCall); ok && c.invoked && !c.haveResult {
			depth++
		}
	}
	return depth
}

// stepOnce advances the thread by one indivisible step. While an abrupt
// completion is pending, states that don't intercept it are unwound
// without running. Returns false once the thread is done.
func (t *Thread) stepOnce() bool {
	if t.cur == nil {
		t.finish()
		return false
	}
	if t.pending != nil {
		if aa, ok := t.cur.(abruptAcceptor); !ok || !aa.wantsAbrupt(t.pending) {
			t.cur = t.cur.parentState()
			if t.cur == nil {
				t.finish()
				return false
			}
			return true
		}
	}
	t.cur = t.cur.step(t)
	if t.cur == nil {
		t.finish()
		return false
	}
	return true
}

// finish retires the thread, reporting an uncaught throw if one unwound
// past the root.
func (t *Thread) finish() {
	t.cur = nil
	t.status = StatusDone
	if t.pending != nil {
		c := t.pending
		t.pending = nil
		switch c.kind {
		case complThrow:
			t.uncaught = c.value
			t.interp.reportUncaught(t, c.value)
			return
		case complReturn:
			t.value = c.value
		}
	}
	t.interp.value = t.Value()
}

// throwUser raises a user error: the error pseudo-object is built and
// threaded upward as a throw completion.
func (t *Thread) throwUser(e *UserError) {
	t.pending = &completion{kind: complThrow, value: t.interp.makeError(e)}
}

// Throw raises an arbitrary value as a throw completion.
func (t *Thread) Throw(v Value) {
	t.pending = &completion{kind: complThrow, value: v}
}

// ---------------------------------------------------------------------------
// Park requests (raised by natives, honored by the scheduler)
// ---------------------------------------------------------------------------

// Yield asks the scheduler to move the thread to the back of the runnable
// queue at the end of the current step.
func (t *Thread) Yield() {
	t.parkKind = parkYield
}

// Sleep asks the scheduler to park the thread until the wall clock reaches
// wakeAt (Unix milliseconds).
func (t *Thread) Sleep(wakeAt int64) {
	t.parkKind = parkSleep
	t.parkWake = wakeAt
}

// Block asks the scheduler to park the thread until the host reports the
// named blocker ready.
func (t *Thread) Block(blocker string) {
	t.parkKind = parkBlock
	t.parkBlocker = blocker
}

// clearPark resets the park request after the scheduler has acted on it.
func (t *Thread) clearPark() {
	t.parkKind = parkNone
	t.parkWake = 0
	t.parkBlocker = ""
}

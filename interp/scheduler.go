package interp

import (
	"container/heap"
)

// Scheduler multiplexes all user threads onto the single host thread. It
// keeps a FIFO runnable queue, a min-heap of sleepers keyed by wake time,
// and a set of blocked threads keyed by blocker identity. A snapshot is
// only ever taken between ticks, so every thread it sees is suspended at a
// state-tree node boundary.
type Scheduler struct {
	interp *Interpreter

	runnable []*Thread
	sleepers sleepHeap
	blocked  map[string][]*Thread

	// threads lists every live thread in creation order; done threads are
	// swept lazily.
	threads []*Thread
	byID    map[int64]*Thread
}

func newScheduler(i *Interpreter) *Scheduler {
	return &Scheduler{
		interp:  i,
		blocked: make(map[string][]*Thread),
		byID:    make(map[int64]*Thread),
	}
}

// add registers a freshly spawned thread as runnable.
func (s *Scheduler) add(t *Thread) {
	t.status = StatusRunnable
	s.threads = append(s.threads, t)
	s.byID[t.id] = t
	s.runnable = append(s.runnable, t)
}

// Lookup returns the thread with the given id, or nil.
func (s *Scheduler) Lookup(id int64) *Thread {
	return s.byID[id]
}

// Threads returns all known threads in creation order.
func (s *Scheduler) Threads() []*Thread {
	out := make([]*Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Kill marks a thread for cancellation. Its state tree is discarded the
// next time it would be scheduled; finally blocks do not run.
func (s *Scheduler) Kill(id int64) bool {
	t := s.byID[id]
	if t == nil || t.status == StatusDone {
		return false
	}
	t.killed = true
	// Parked threads never come up for scheduling on their own, so
	// retire them here.
	switch t.status {
	case StatusSleeping, StatusBlocked:
		s.reap(t)
	}
	return true
}

// reap retires a killed thread immediately.
func (s *Scheduler) reap(t *Thread) {
	t.cur = nil
	t.pending = nil
	t.status = StatusDone
	s.removeBlocked(t)
}

func (s *Scheduler) removeBlocked(t *Thread) {
	if t.blocker == "" {
		return
	}
	list := s.blocked[t.blocker]
	for i, bt := range list {
		if bt == t {
			s.blocked[t.blocker] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.blocked[t.blocker]) == 0 {
		delete(s.blocked, t.blocker)
	}
	t.blocker = ""
}

// NotifyReady unblocks every thread parked on the named blocker, in the
// order they blocked.
func (s *Scheduler) NotifyReady(blocker string) {
	list := s.blocked[blocker]
	if len(list) == 0 {
		return
	}
	delete(s.blocked, blocker)
	for _, t := range list {
		t.blocker = ""
		if t.killed {
			s.reap(t)
			continue
		}
		t.status = StatusRunnable
		s.runnable = append(s.runnable, t)
	}
}

// wakeSleepers promotes every sleeper whose wake time has arrived.
func (s *Scheduler) wakeSleepers(nowMs int64) {
	for s.sleepers.Len() > 0 && s.sleepers[0].wakeAt <= nowMs {
		t := heap.Pop(&s.sleepers).(*Thread)
		if t.killed {
			s.reap(t)
			continue
		}
		t.status = StatusRunnable
		s.runnable = append(s.runnable, t)
	}
}

// Tick runs one scheduling slice: expired sleepers re-enter the runnable
// queue, then the thread at the front advances up to budget steps and is
// re-queued, parked, or retired. Returns true while any thread is alive.
func (s *Scheduler) Tick(budget int) bool {
	s.wakeSleepers(s.interp.clock.NowMillis())

	if len(s.runnable) == 0 {
		return s.alive()
	}
	t := s.runnable[0]
	s.runnable = s.runnable[1:]

	if t.killed {
		s.reap(t)
		return s.alive()
	}

	for steps := 0; steps < budget; steps++ {
		if !t.stepOnce() {
			break
		}
		if t.parkKind != parkNone {
			break
		}
	}

	switch {
	case t.status == StatusDone:
		// retired by stepOnce
	case t.parkKind == parkSleep:
		t.status = StatusSleeping
		t.wakeAt = t.parkWake
		heap.Push(&s.sleepers, t)
	case t.parkKind == parkBlock:
		t.status = StatusBlocked
		t.blocker = t.parkBlocker
		s.blocked[t.blocker] = append(s.blocked[t.blocker], t)
	default:
		// Budget exhausted or an explicit yield: fair round-robin.
		s.runnable = append(s.runnable, t)
	}
	t.clearPark()
	s.sweep()
	return s.alive()
}

// alive reports whether any thread can still make progress now or later.
func (s *Scheduler) alive() bool {
	if len(s.runnable) > 0 || s.sleepers.Len() > 0 {
		return true
	}
	for _, list := range s.blocked {
		if len(list) > 0 {
			return true
		}
	}
	return false
}

// sweep drops done threads from the creation-order list.
func (s *Scheduler) sweep() {
	live := s.threads[:0]
	for _, t := range s.threads {
		if t.status == StatusDone {
			delete(s.byID, t.id)
			continue
		}
		live = append(live, t)
	}
	s.threads = live
}

// RunnableCount returns the number of threads in the runnable queue.
func (s *Scheduler) RunnableCount() int {
	return len(s.runnable)
}

// NextWake returns the earliest sleeper wake time in Unix milliseconds, or
// 0 when no thread sleeps.
func (s *Scheduler) NextWake() int64 {
	if s.sleepers.Len() == 0 {
		return 0
	}
	return s.sleepers[0].wakeAt
}

// ---------------------------------------------------------------------------
// Sleep heap
// ---------------------------------------------------------------------------

type sleepHeap []*Thread

func (h sleepHeap) Len() int            { return len(h) }
func (h sleepHeap) Less(i, j int) bool  { return h[i].wakeAt < h[j].wakeAt }
func (h sleepHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *sleepHeap) Push(x interface{}) { *h = append(*h, x.(*Thread)) }
func (h *sleepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Package frameclock provides a cooperative, single-threaded scheduler driven
// by an external frame loop.
//
// Nothing in this package starts goroutines or reads the wall clock. The owner
// calls Advance from its event loop (a bubbletea tick, a test) and every due
// callback runs synchronously on that goroutine, in time order.
//
//	clock := frameclock.New(time.Now())
//	clock.After(250*time.Millisecond, func() { fmt.Println("fired") })
//	clock.Advance(time.Now().Add(time.Second))
package frameclock

import (
	"container/heap"
	"time"
)

// Clock is the narrow scheduling surface consumed by the choreography packages.
type Clock interface {
	Now() time.Time
	After(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped a pending timer.
	Stop() bool
}

// Scheduler is the frame-driven Clock implementation.
type Scheduler struct {
	now   time.Time
	queue timerQueue
	seq   uint64
}

var _ Clock = (*Scheduler)(nil)

// New returns a Scheduler whose clock starts at start.
func New(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Now reports the scheduler time. It only moves forward through Advance.
func (s *Scheduler) Now() time.Time { return s.now }

// After schedules fn to run once the clock reaches Now()+d. Negative durations
// are treated as zero; zero-delay callbacks run on the next Advance.
func (s *Scheduler) After(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &timer{owner: s, at: s.now.Add(d), seq: s.seq, fn: fn, index: -1}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock to `to`, firing every callback due on the way.
// Callbacks observe Now() equal to their own due time. Returns the number of
// callbacks fired. A `to` earlier than Now() only drains already-due timers.
func (s *Scheduler) Advance(to time.Time) int {
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.at.After(to) {
			break
		}
		heap.Pop(&s.queue)
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.fired = true
		if next.fn != nil {
			next.fn()
		}
		fired++
	}
	if to.After(s.now) {
		s.now = to
	}
	return fired
}

// AdvanceBy is Advance(Now()+d).
func (s *Scheduler) AdvanceBy(d time.Duration) int {
	return s.Advance(s.now.Add(d))
}

// Pending reports how many callbacks are scheduled.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// Next reports when the earliest pending callback is due.
func (s *Scheduler) Next() (time.Time, bool) {
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].at, true
}

type timer struct {
	owner *Scheduler
	at    time.Time
	seq   uint64
	fn    func()
	index int
	fired bool
}

func (t *timer) Stop() bool {
	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&t.owner.queue, t.index)
	return true
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

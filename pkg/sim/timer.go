package sim

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

const (
	stateIdle = iota
	stateActive
	stateExpired
)

// Timer is a one-shot timer that can be paused, used to bound how long a
// realtime run lasts. The current time is sent on C when it expires.
type Timer struct {
	t *time.Timer
	C <-chan time.Time
	c chan time.Time

	mutex     deadlock.Mutex
	state     int
	duration  time.Duration
	startedAt time.Time
}

func NewTimer(d time.Duration) *Timer {
	c := make(chan time.Time, 1)
	return &Timer{
		C:        c,
		c:        c,
		duration: d,
	}
}

func (t *Timer) fire() {
	t.mutex.Lock()
	t.state = stateExpired
	t.mutex.Unlock()
	t.c <- time.Now()
}

// Start starts or resumes the timer. It returns false if the timer is
// already running or has expired.
func (t *Timer) Start() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != stateIdle {
		return false
	}
	t.startedAt = time.Now()
	t.state = stateActive
	t.t = time.AfterFunc(t.duration, t.fire)
	return true
}

// Pause stops the countdown until the next Start.
func (t *Timer) Pause() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != stateActive {
		return false
	}
	if !t.t.Stop() {
		return false
	}
	t.state = stateIdle
	t.duration -= time.Since(t.startedAt)
	return true
}

func (t *Timer) Paused() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state == stateIdle
}

// Stop prevents the timer from firing.
func (t *Timer) Stop() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != stateActive {
		t.state = stateExpired
		return false
	}
	t.state = stateExpired
	return t.t.Stop()
}

// TimeLeft is safe to call on a nil timer and returns 0 in that case.
func (t *Timer) TimeLeft() time.Duration {
	if t == nil {
		return 0
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch t.state {
	case stateIdle:
		return t.duration
	case stateActive:
		return t.duration - time.Since(t.startedAt)
	}
	return 0
}

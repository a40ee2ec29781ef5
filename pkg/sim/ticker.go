package sim

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Ticker is a time.Ticker that can be paused. Ticks that fall due while it
// is paused are dropped.
type Ticker struct {
	C <-chan time.Time

	mutex   deadlock.Mutex
	paused  bool
	stopped bool
	control chan bool
	stop    chan struct{}
	done    chan struct{}
	ticker  *time.Ticker
}

func NewTicker(d time.Duration) *Ticker {
	c := make(chan time.Time)
	t := &Ticker{
		C:       c,
		control: make(chan bool),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		ticker:  time.NewTicker(d),
	}

	go t.run(c)

	return t
}

func (t *Ticker) run(c chan<- time.Time) {
	defer close(t.done)

	paused := false
	for {
		if paused {
			select {
			case paused = <-t.control:
			case <-t.stop:
				return
			}
			continue
		}

		select {
		case now := <-t.ticker.C:
			select {
			case c <- now:
			case paused = <-t.control:
			case <-t.stop:
				return
			}
		case paused = <-t.control:
		case <-t.stop:
			return
		}
	}
}

func (t *Ticker) set(paused bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped || t.paused == paused {
		return
	}
	t.control <- paused
	t.paused = paused
}

func (t *Ticker) Pause() {
	t.set(true)
}

func (t *Ticker) Resume() {
	t.set(false)
}

func (t *Ticker) Paused() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.paused
}

func (t *Ticker) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stop)
	<-t.done
	t.ticker.Stop()
}

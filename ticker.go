package pcmtest

import (
	"sync"
	"time"
)

// ticker is the simulated hardware clock of one substream. It calls tick once per interval on its own
// goroutine. The next fire is scheduled relative to the end of the previous tick, so injected delays
// accumulate.
type ticker struct {
	interval time.Duration
	delay    func() time.Duration // Extra delay read before every reschedule, may be nil.
	tick     func()

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startTicker(interval time.Duration, delay func() time.Duration, tick func()) *ticker {
	t := &ticker{
		interval: interval,
		delay:    delay,
		tick:     tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go t.run()

	return t
}

func (t *ticker) run() {
	defer close(t.done)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-timer.C:
		}

		// Both channels may be ready at once; stop wins.
		select {
		case <-t.stop:
			return
		default:
		}

		t.tick()
		timer.Reset(t.next())
	}
}

func (t *ticker) next() time.Duration {
	d := t.interval
	if t.delay != nil {
		if extra := t.delay(); extra > 0 {
			d += extra
		}
	}

	return d
}

// shutdownSync stops the ticker and waits until a tick in progress has returned. No tick runs after
// it returns. It must not be called from the tick itself.
func (t *ticker) shutdownSync() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

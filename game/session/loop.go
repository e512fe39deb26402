package session

import (
	"time"

	"go.uber.org/zap"
)

// Ticker delivers tick times to a session loop
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// loop is the handle of one running tick goroutine.
type loop struct {
	stop chan struct{}
}

// startLoopLocked launches the tick goroutine unless one is already running.
func (s *Session) startLoopLocked() {
	if s.loop != nil {
		return
	}

	l := &loop{stop: make(chan struct{})}
	s.loop = l
	s.loops.Add(1)

	ticker := s.opts.NewTicker(s.eng.Settings().TickInterval())
	go s.run(l, ticker)
}

// stopLoopLocked detaches the current loop; its goroutine exits on its own.
func (s *Session) stopLoopLocked() {
	if s.loop == nil {
		return
	}
	close(s.loop.stop)
	s.loop = nil
}

func (s *Session) run(l *loop, ticker Ticker) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick loop panicked", zap.Any("panic", r))
			s.mu.Lock()
			if s.loop == l {
				s.loop = nil
			}
			s.mu.Unlock()
		}
		ticker.Stop()
		s.loops.Add(-1)
	}()

	for {
		select {
		case <-l.stop:
			return
		case at := <-ticker.C():
			if !s.step(l, at) {
				return
			}
		}
	}
}

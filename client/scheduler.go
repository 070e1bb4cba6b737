package client

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Scheduler runs at most one pending callback. Schedule replaces whatever was
// pending; Stop cancels it.
type Scheduler interface {
	Schedule(fn func(), delay time.Duration)
	Stop()
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimerScheduler is a Scheduler on top of time.AfterFunc. A timer that fires
// after it was replaced or stopped does nothing.
type TimerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Schedule(fn func(), delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.gen++
		s.timer = nil
		s.mu.Unlock()

		fn()
	})
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *TimerScheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Jitter scales d by a factor drawn uniformly from [0.9, 1.1].
func Jitter(d time.Duration) time.Duration {
	return time.Duration(math.Round(float64(d) * (0.9 + rand.Float64()*0.2)))
}

func NoJitter(d time.Duration) time.Duration { return d }

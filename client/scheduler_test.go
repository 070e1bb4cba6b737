package client

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerSchedulerReplacesPending(t *testing.T) {
	s := NewTimerScheduler()
	var first, second atomic.Int32
	done := make(chan struct{})

	s.Schedule(func() { first.Add(1) }, 20*time.Millisecond)
	s.Schedule(func() {
		second.Add(1)
		close(done)
	}, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement callback never ran")
	}
	time.Sleep(40 * time.Millisecond)

	if first.Load() != 0 {
		t.Fatal("replaced callback ran")
	}
	if second.Load() != 1 {
		t.Fatalf("replacement ran %d times", second.Load())
	}
}

func TestTimerSchedulerStop(t *testing.T) {
	s := NewTimerScheduler()
	var calls atomic.Int32

	s.Schedule(func() { calls.Add(1) }, 10*time.Millisecond)
	s.Stop()
	time.Sleep(40 * time.Millisecond)

	if calls.Load() != 0 {
		t.Fatal("stopped callback ran")
	}
}

func TestJitterBounds(t *testing.T) {
	base := 2 * time.Second
	lo := time.Duration(float64(base) * 0.9)
	hi := time.Duration(float64(base) * 1.1)
	for i := 0; i < 1000; i++ {
		d := Jitter(base)
		if d < lo || d > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, lo, hi)
		}
	}
}

package client

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultFirstPollDelay        = 800 * time.Millisecond
	DefaultQueuedInterval        = 2 * time.Second
	DefaultInProgressInterval    = 2 * time.Second
	DefaultCompletedWaitInterval = 2 * time.Second
	DefaultNetworkErrorBase      = 10 * time.Second
	DefaultMaxNetworkErrorSteps  = 4
	DefaultMaxResultWait         = 60 * time.Second
)

// Options tunes a Reconciler. The zero value is not usable; start from
// NewOptions.
type Options struct {
	// FirstPollDelay is not jittered.
	FirstPollDelay        time.Duration
	QueuedInterval        time.Duration
	InProgressInterval    time.Duration
	CompletedWaitInterval time.Duration
	NetworkErrorBase      time.Duration
	MaxNetworkErrorSteps  int
	// MaxResultWait bounds how long a completed job may go without a result url.
	MaxResultWait time.Duration

	Scheduler Scheduler
	Clock     Clock
	Jitter    func(time.Duration) time.Duration
	Logger    zerolog.Logger
	Observer  func(State)
}

type Option func(o *Options)

func NewOptions(options ...Option) *Options {
	config := &Options{
		FirstPollDelay:        DefaultFirstPollDelay,
		QueuedInterval:        DefaultQueuedInterval,
		InProgressInterval:    DefaultInProgressInterval,
		CompletedWaitInterval: DefaultCompletedWaitInterval,
		NetworkErrorBase:      DefaultNetworkErrorBase,
		MaxNetworkErrorSteps:  DefaultMaxNetworkErrorSteps,
		MaxResultWait:         DefaultMaxResultWait,
		Clock:                 SystemClock{},
		Jitter:                Jitter,
		Logger:                zerolog.Nop(),
	}

	for _, option := range options {
		option(config)
	}

	if config.Scheduler == nil {
		config.Scheduler = NewTimerScheduler()
	}
	if config.MaxNetworkErrorSteps < 1 {
		config.MaxNetworkErrorSteps = 1
	}

	return config
}

func WithFirstPollDelay(d time.Duration) Option {
	return func(o *Options) {
		o.FirstPollDelay = d
	}
}

// WithPollInterval sets the queued, in-progress and completed-wait intervals
// in one go.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.QueuedInterval = d
		o.InProgressInterval = d
		o.CompletedWaitInterval = d
	}
}

func WithQueuedInterval(d time.Duration) Option {
	return func(o *Options) {
		o.QueuedInterval = d
	}
}

func WithInProgressInterval(d time.Duration) Option {
	return func(o *Options) {
		o.InProgressInterval = d
	}
}

func WithCompletedWaitInterval(d time.Duration) Option {
	return func(o *Options) {
		o.CompletedWaitInterval = d
	}
}

func WithNetworkErrorBackoff(base time.Duration, maxSteps int) Option {
	return func(o *Options) {
		o.NetworkErrorBase = base
		o.MaxNetworkErrorSteps = maxSteps
	}
}

func WithMaxResultWait(d time.Duration) Option {
	return func(o *Options) {
		o.MaxResultWait = d
	}
}

func WithScheduler(s Scheduler) Option {
	return func(o *Options) {
		o.Scheduler = s
	}
}

func WithClock(c Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithJitter replaces the delay randomiser. Pass NoJitter for exact delays.
func WithJitter(f func(time.Duration) time.Duration) Option {
	return func(o *Options) {
		if f != nil {
			o.Jitter = f
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithObserver registers a callback that receives every new state snapshot.
// It runs outside the reconciler's lock and must not block for long.
func WithObserver(f func(State)) Option {
	return func(o *Options) {
		o.Observer = f
	}
}

package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrModelOverload is the mock generator's simulated inference failure.
var ErrModelOverload = errors.New("model overload, try again")

var sampleClips = []string{
	"https://interactive-examples.mdn.mozilla.net/media/cc0-videos/flower.mp4",
}

type Clip struct {
	URL         string
	DurationSec int
}

type ClipGenerator interface {
	GenerateClip(ctx context.Context, prompt string) (Clip, error)
}

// MockGenerator pretends to run video inference: it waits, occasionally
// fails, and hands back a sample clip of 4 to 8 seconds.
type MockGenerator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minDelay    time.Duration
	spread      time.Duration
	failureRate float64
	clips       []string
}

type GeneratorOption func(g *MockGenerator)

// WithDelay makes each clip take between min and min+spread.
func WithDelay(min, spread time.Duration) GeneratorOption {
	return func(g *MockGenerator) {
		g.minDelay = min
		g.spread = spread
	}
}

func WithFailureRate(rate float64) GeneratorOption {
	return func(g *MockGenerator) {
		g.failureRate = rate
	}
}

func WithSeed(seed uint64) GeneratorOption {
	return func(g *MockGenerator) {
		g.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func WithClips(urls ...string) GeneratorOption {
	return func(g *MockGenerator) {
		if len(urls) > 0 {
			g.clips = urls
		}
	}
}

func NewMockGenerator(options ...GeneratorOption) *MockGenerator {
	g := &MockGenerator{
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		minDelay:    1200 * time.Millisecond,
		spread:      1400 * time.Millisecond,
		failureRate: 0.06,
		clips:       sampleClips,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *MockGenerator) GenerateClip(ctx context.Context, prompt string) (Clip, error) {
	g.mu.Lock()
	delay := g.minDelay
	if g.spread > 0 {
		delay += time.Duration(g.rng.Int64N(int64(g.spread)))
	}
	fail := g.rng.Float64() < g.failureRate
	clip := Clip{
		URL:         g.clips[g.rng.IntN(len(g.clips))],
		DurationSec: 4 + g.rng.IntN(5),
	}
	g.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	}

	if fail {
		return Clip{}, ErrModelOverload
	}
	return clip, nil
}

var _ ClipGenerator = (*MockGenerator)(nil)

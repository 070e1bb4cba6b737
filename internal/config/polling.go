package config

import (
	"time"

	"github.com/colsephiroth/storyreel/client"
)

// Options converts the polling section into reconciler options.
func (p Polling) Options() []client.Option {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return []client.Option{
		client.WithFirstPollDelay(ms(p.FirstPollMS)),
		client.WithQueuedInterval(ms(p.QueuedMS)),
		client.WithInProgressInterval(ms(p.InProgressMS)),
		client.WithCompletedWaitInterval(ms(p.CompletedWaitMS)),
		client.WithNetworkErrorBackoff(ms(p.NetworkErrorBaseMS), p.MaxNetworkSteps),
		client.WithMaxResultWait(ms(p.MaxResultWaitMS)),
	}
}

// Timeout returns the HTTP client timeout for backend calls.
func (a API) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

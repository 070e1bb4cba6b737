package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/colsephiroth/storyreel/client"
)

const (
	defaultBaseURL   = "http://localhost:8000/"
	defaultMockBind  = "127.0.0.1:8000"
	defaultCacheFile = "scenes.db"
)

// Default returns a configuration populated with the built-in defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: 30,
		},
		Polling: Polling{
			FirstPollMS:        int(client.DefaultFirstPollDelay.Milliseconds()),
			QueuedMS:           int(client.DefaultQueuedInterval.Milliseconds()),
			InProgressMS:       int(client.DefaultInProgressInterval.Milliseconds()),
			CompletedWaitMS:    int(client.DefaultCompletedWaitInterval.Milliseconds()),
			NetworkErrorBaseMS: int(client.DefaultNetworkErrorBase.Milliseconds()),
			MaxNetworkSteps:    client.DefaultMaxNetworkErrorSteps,
			MaxResultWaitMS:    int(client.DefaultMaxResultWait.Milliseconds()),
		},
		Cache: Cache{
			Path: filepath.Join(defaultCacheDir(), defaultCacheFile),
		},
		Mock: Mock{
			Bind:          defaultMockBind,
			FailureRate:   0.06,
			MinDelayMS:    1200,
			DelaySpreadMS: 1400,
			URLLagMS:      0,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "storyreel")
	}
	return "~/.cache/storyreel"
}

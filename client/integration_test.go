package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/server"
)

func TestReconcilerAgainstMockBackend(t *testing.T) {
	gen := server.NewMockGenerator(
		server.WithDelay(20*time.Millisecond, 0),
		server.WithFailureRate(0),
		server.WithClips("https://cdn.test/clip.mp4"),
	)
	backend := server.NewBackend(server.WithGenerator(gen), server.WithURLLag(30*time.Millisecond))
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(func() {
		srv.Close()
		backend.Close()
	})

	api, err := client.NewAPI(srv.URL)
	if err != nil {
		t.Fatalf("NewAPI returned error: %v", err)
	}
	ctx := context.Background()
	project, err := api.CreateProject(ctx, "Night bus")
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	settled := make(chan client.State, 1)
	opts := client.NewOptions(
		client.WithFirstPollDelay(5*time.Millisecond),
		client.WithPollInterval(5*time.Millisecond),
		client.WithObserver(func(s client.State) {
			if s.Settled() {
				select {
				case settled <- s:
				default:
				}
			}
		}),
	)
	rec := client.NewReconciler(api, project.ID, opts)
	t.Cleanup(rec.Close)

	if err := rec.Start(ctx, "a bus at night"); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case state := <-settled:
		if !state.IsCompleted() {
			t.Fatalf("expected completion, got %+v", state)
		}
		if state.ResultURL != "https://cdn.test/clip.mp4" || state.Prompt != "a bus at night" {
			t.Fatalf("unexpected final state %+v", state)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("reconciler never settled, last state %+v", rec.State())
	}

	tl := client.NewTimeline(api, project.ID, rec.State().ResultURL, rec.State().Prompt)
	if _, err := tl.GenerateNext(ctx, "the bus stops"); err != nil {
		t.Fatalf("GenerateNext returned error: %v", err)
	}
	if err := tl.Reload(ctx); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if n := len(tl.Scenes()); n != 2 {
		t.Fatalf("expected initial scene plus one segment, got %d", n)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/common"
	"github.com/colsephiroth/storyreel/internal/scenecache"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <project-id> <prompt>",
		Short: "Generate the initial video for a project and wait for the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runGenerate(signalCtx, ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func runGenerate(runCtx context.Context, ctx *commandContext, out, progress io.Writer, projectID, prompt string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return client.ErrEmptyPrompt
	}

	lockPath := filepath.Join(cfg.Cache.LockDir, projectID+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("a generation for project %s is already running (lock %s)", projectID, lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	api, err := ctx.api()
	if err != nil {
		return err
	}

	settled := make(chan client.State, 1)
	var lastStatus string
	options := append(cfg.Polling.Options(),
		client.WithLogger(ctx.logger.With().Str("component", "reconciler").Str("project_id", projectID).Logger()),
		client.WithObserver(func(s client.State) {
			if label := statusLabel(s); label != lastStatus {
				lastStatus = label
				fmt.Fprintf(progress, "status: %s\n", label)
			}
			if s.Settled() {
				select {
				case settled <- s:
				default:
				}
			}
		}),
	)
	rec := client.NewReconciler(api, projectID, client.NewOptions(options...))
	defer rec.Close()

	if err := rec.Start(runCtx, prompt); err != nil {
		return fmt.Errorf("submit generation: %w", err)
	}

	var final client.State
	select {
	case final = <-settled:
	case <-runCtx.Done():
		rec.Reset()
		return runCtx.Err()
	}

	switch {
	case final.IsCompleted():
		if err := ctx.withCache(func(store *scenecache.Store) error {
			scenes := store.Read(runCtx, projectID)
			scenes = client.PlaceInitialScene(scenes, projectID, final.ResultURL, time.Now())
			return store.Write(runCtx, projectID, scenes)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Video ready: %s\n", final.ResultURL)
		return nil
	case final.Err != nil:
		return final.Err
	default:
		return errors.New("generation stopped without a result")
	}
}

func statusLabel(s client.State) string {
	if s.Err != nil && !s.IsFailed() {
		return fmt.Sprintf("%s (%s)", s.Status, s.ErrorMessage())
	}
	if s.Status == common.Completed && s.ResultURL == "" {
		return "completed, waiting for video url"
	}
	return s.Status.String()
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/common"
	"github.com/colsephiroth/storyreel/internal/scenecache"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var remote bool

	cmd := &cobra.Command{
		Use:   "assemble <project-id>",
		Short: "Write a storyboard playlist and optionally request a server-side assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()
			tl, project, err := loadTimeline(runCtx, ctx, args[0])
			if err != nil {
				return err
			}

			scenes := tl.Scenes()
			if err := ctx.withCache(func(store *scenecache.Store) error {
				scenes = withCachedDurations(scenes, store.Read(runCtx, project.ID))
				return nil
			}); err != nil {
				return err
			}

			payload, name, err := client.BuildStoryboard(project, scenes, time.Now())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, payload, 0o644); err != nil {
				return fmt.Errorf("write storyboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Storyboard written to %s\n", path)

			if !remote {
				return nil
			}
			api, err := ctx.api()
			if err != nil {
				return err
			}
			res, err := api.Assemble(runCtx, project.ID)
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assembled video: %s\n", res.AssembledURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the storyboard file")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also ask the backend to assemble the final video")
	return cmd
}

// withCachedDurations fills clip durations the backend does not report from
// cached scenes with the same clip url.
func withCachedDurations(scenes, cached []common.Scene) []common.Scene {
	byURL := make(map[string]int, len(cached))
	for _, s := range cached {
		if s.ClipURL != "" && s.DurationSec > 0 {
			byURL[s.ClipURL] = s.DurationSec
		}
	}
	out := make([]common.Scene, len(scenes))
	for i, s := range scenes {
		if s.DurationSec == 0 {
			s.DurationSec = byURL[s.ClipURL]
		}
		out[i] = s
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/common"
	"github.com/colsephiroth/storyreel/internal/scenecache"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Inspect and extend a project's story",
	}
	cmd.AddCommand(newSegmentsListCommand(ctx))
	cmd.AddCommand(newSegmentsContinueCommand(ctx))
	cmd.AddCommand(newSegmentsDeleteLastCommand(ctx))
	return cmd
}

// loadTimeline fetches the project and its segments from the backend.
func loadTimeline(runCtx context.Context, ctx *commandContext, projectID string) (*client.Timeline, common.Project, error) {
	api, err := ctx.api()
	if err != nil {
		return nil, common.Project{}, err
	}
	project, err := api.GetProject(runCtx, projectID)
	if err != nil {
		return nil, common.Project{}, fmt.Errorf("get project: %w", err)
	}
	tl := client.NewTimeline(api, project.ID, project.InitialVideoURL, project.Prompt)
	if err := tl.Reload(runCtx); err != nil {
		return nil, common.Project{}, fmt.Errorf("load segments: %w", err)
	}
	return tl, project, nil
}

func newSegmentsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the scenes of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, _, err := loadTimeline(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			scenes := tl.Scenes()
			if len(scenes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenes yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScenes(scenes))
			return nil
		},
	}
}

func newSegmentsContinueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "continue <project-id> <prompt>",
		Short: "Generate the next scene from the end of the story",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()
			projectID := args[0]
			prompt := strings.TrimSpace(strings.Join(args[1:], " "))
			if prompt == "" {
				return client.ErrEmptyPrompt
			}
			tl, _, err := loadTimeline(runCtx, ctx, projectID)
			if err != nil {
				return err
			}

			return ctx.withCache(func(store *scenecache.Store) error {
				scenes, draftID := client.AddDraft(store.Read(runCtx, projectID), prompt, time.Now())
				scenes = client.MarkGenerating(scenes, draftID)
				if err := store.Write(runCtx, projectID, scenes); err != nil {
					return err
				}

				scene, err := tl.GenerateNext(runCtx, prompt)
				if err != nil {
					scenes = client.MarkError(scenes, draftID, err.Error())
					_ = store.Write(runCtx, projectID, scenes)
					return fmt.Errorf("continue story: %w", err)
				}
				scenes = client.MarkReady(scenes, draftID, scene.ClipURL, scene.DurationSec)
				if err := store.Write(runCtx, projectID, scenes); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d ready: %s\n", len(tl.Scenes()), scene.ClipURL)
				return nil
			})
		},
	}
}

func newSegmentsDeleteLastCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-last <project-id>",
		Short: "Remove the most recent scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()
			projectID := args[0]
			tl, _, err := loadTimeline(runCtx, ctx, projectID)
			if err != nil {
				return err
			}
			if err := tl.RemoveLast(runCtx); err != nil {
				return fmt.Errorf("delete last scene: %w", err)
			}
			err = ctx.withCache(func(store *scenecache.Store) error {
				scenes := store.Read(runCtx, projectID)
				if n := len(scenes); n > 0 && scenes[n-1].ID != client.InitialSceneID(projectID) {
					scenes = client.RemoveScene(scenes, scenes[n-1].ID)
				}
				return store.Write(runCtx, projectID, scenes)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed last scene, %d remaining\n", len(tl.Scenes()))
			return nil
		},
	}
}

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <project-id> [hint]",
		Short: "Suggest ways to continue the story",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			suggestions, err := client.FetchSuggestions(cmd.Context(), api, args[0], strings.Join(args[1:], " "))
			if err != nil {
				ctx.logger.Warn().Err(err).Str("project_id", args[0]).Msg("suggestions unavailable, using defaults")
			}
			for i, s := range suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, s)
			}
			return nil
		},
	}
}

func renderScenes(scenes []common.Scene) string {
	rows := make([][]string, 0, len(scenes))
	for i, s := range scenes {
		duration := "-"
		if s.DurationSec > 0 {
			duration = strconv.Itoa(s.DurationSec) + "s"
		}
		clip := s.ClipURL
		if clip == "" {
			clip = "-"
		}
		status := string(s.Status)
		if s.ErrorMsg != "" {
			status += ": " + s.ErrorMsg
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), s.Prompt, status, duration, clip})
	}
	return renderTable(
		[]string{"#", "Prompt", "Status", "Duration", "Clip"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

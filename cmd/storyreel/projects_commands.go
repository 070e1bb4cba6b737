package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colsephiroth/storyreel/common"
	"github.com/colsephiroth/storyreel/internal/scenecache"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage film projects",
	}
	cmd.AddCommand(newProjectsListCommand(ctx))
	cmd.AddCommand(newProjectsCreateCommand(ctx))
	cmd.AddCommand(newProjectsShowCommand(ctx))
	cmd.AddCommand(newProjectsRenameCommand(ctx))
	cmd.AddCommand(newProjectsDeleteCommand(ctx))
	return cmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			projects, err := api.ListProjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, projectRow(p))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(projectHeaders, rows, nil))
			return nil
		},
	}
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			p, err := api.CreateProject(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
}

func newProjectsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its cached scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			p, err := api.GetProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get project: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(projectHeaders, [][]string{projectRow(p)}, nil))
			if p.Prompt != "" {
				fmt.Fprintf(out, "Prompt: %s\n", p.Prompt)
			}
			return ctx.withCache(func(store *scenecache.Store) error {
				scenes := store.Read(cmd.Context(), p.ID)
				if len(scenes) == 0 {
					return nil
				}
				fmt.Fprintln(out, renderScenes(scenes))
				return nil
			})
		},
	}
}

func newProjectsRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <project-id> <name>",
		Short: "Rename a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			p, err := api.RenameProject(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("rename project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed project %s to %s\n", p.ID, p.Name)
			return nil
		},
	}
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its cached scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.api()
			if err != nil {
				return err
			}
			if err := api.DeleteProject(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete project: %w", err)
			}
			if err := ctx.withCache(func(store *scenecache.Store) error {
				return store.Delete(cmd.Context(), args[0])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}

var projectHeaders = []string{"ID", "Name", "Status", "Video", "Updated"}

func projectRow(p common.Project) []string {
	status := p.GenerationStatus
	if status == "" {
		status = "-"
	}
	video := p.InitialVideoURL
	if video == "" {
		video = "-"
	}
	updated := "-"
	if !p.UpdatedAt.IsZero() {
		updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	return []string{p.ID, p.Name, status, video, updated}
}

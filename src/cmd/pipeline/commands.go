package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pipeline-agent/src/provider"
	"pipeline-agent/src/sanitize"
	"pipeline-agent/src/tui"
)

const defaultTop = 10

var (
	top          int
	definitionID int
	reasonFilter string
	showTree     bool
	outputFile   string
	buildFlag    int
	prFlag       int
	includeAll   bool
	jobFlag      int64
	workItemFlag int64
	usePager     bool
	compact      bool
	tailLines    int
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List the most recent builds of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		var def *int
		if cmd.Flags().Changed("definition") {
			def = &definitionID
		}
		builds, err := svc.ListRecentBuilds(cmd.Context(), def, top)
		if err != nil {
			return err
		}
		return emit(builds, func(r *tui.Renderer) string { return r.Builds(builds) })
	},
}

var repoBuildsCmd = &cobra.Command{
	Use:   "repo-builds <owner/repo>",
	Short: "List builds of a GitHub repository",
	Example: `  pipeline repo-builds dotnet/runtime --filter pr
  pipeline repo-builds dotnet/aspnetcore --top 20 -o table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := provider.ParseRepository(args[0])
		if err != nil {
			return err
		}
		reason, err := provider.ParseReasonFilter(reasonFilter)
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		builds, err := svc.ListBuildsForRepository(cmd.Context(), repo, top, reason)
		if err != nil {
			return err
		}
		return emit(builds, func(r *tui.Renderer) string { return r.Builds(builds) })
	},
}

var prBuildsCmd = &cobra.Command{
	Use:   "pr-builds <owner/repo> <pr>",
	Short: "List builds of a pull request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := provider.ParseRepository(args[0])
		if err != nil {
			return err
		}
		pr, err := parseID("pr", args[1])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		builds, err := svc.ListBuildsForPullRequest(cmd.Context(), repo, pr, top)
		if err != nil {
			return err
		}
		return emit(builds, func(r *tui.Renderer) string { return r.Builds(builds) })
	},
}

var testsCmd = &cobra.Command{
	Use:   "tests <build-id>",
	Short: "List failed test results of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		failures, err := svc.GetTestFailures(cmd.Context(), id)
		if err != nil {
			return err
		}
		return emit(failures, func(r *tui.Renderer) string { return r.TestFailures(failures) })
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <build-id>",
	Short: "Show the timeline records of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		timeline, err := svc.GetTimeline(cmd.Context(), id)
		if err != nil {
			return err
		}
		if showTree {
			fmt.Println(tui.NewRenderer(nil).Timeline(timeline))
			return nil
		}
		return emit(timeline, func(r *tui.Renderer) string { return r.Timeline(timeline) })
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts <build-id>",
	Short: "List artifacts published by a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		artifacts, err := svc.GetArtifacts(cmd.Context(), id)
		if err != nil {
			return err
		}
		return emit(artifacts, func(r *tui.Renderer) string { return r.Artifacts(artifacts) })
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs <build-id>",
	Short: "List the jobs of a build in execution order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		jobs, err := svc.Jobs(cmd.Context(), id)
		if err != nil {
			return err
		}
		return emit(jobs, func(r *tui.Renderer) string { return r.Jobs(jobs) })
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <build-id> <artifact>",
	Short: "Download a build artifact",
	Long: `Downloads the named artifact to a file. The default file name is the
artifact name with a .zip suffix.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}
		name := args[1]
		path := outputFile
		if path == "" {
			path = name + ".zip"
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		n, err := svc.DownloadArtifact(cmd.Context(), id, name, f)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
			return err
		}

		appLogger.Info("Wrote %d bytes to %s", n, path)
		return emit(map[string]interface{}{"artifact": name, "path": path, "bytes": n}, nil)
	},
}

var workItemsCmd = &cobra.Command{
	Use:   "helix-work-items <owner/repo>",
	Short: "List Helix work items of a build or pull request",
	Long: `Lists Helix work items queued by a build (--build) or from a pull
request's merge ref (--pr). Only failed work items are shown unless --all is
set. The analytics cluster is only reachable from the corporate network.`,
	Example: `  pipeline helix-work-items dotnet/runtime --build 1234567
  pipeline helix-work-items dotnet/runtime --pr 98765 --all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := provider.ParseRepository(args[0])
		if err != nil {
			return err
		}
		if err := exactlyOne(cmd, "build", "pr"); err != nil {
			return err
		}

		svc, err := fullService(cmd.Context())
		if err != nil {
			return err
		}

		var items []provider.WorkItem
		if cmd.Flags().Changed("build") {
			items, err = svc.WorkItemsForBuild(cmd.Context(), repo, buildFlag, includeAll)
		} else {
			items, err = svc.WorkItemsForPullRequest(cmd.Context(), repo, prFlag, includeAll)
		}
		if err != nil {
			return err
		}
		return emit(items, func(r *tui.Renderer) string { return r.WorkItems(items) })
	},
}

var consoleCmd = &cobra.Command{
	Use:   "helix-console [owner/repo]",
	Short: "Show Helix work item console logs",
	Long: `Shows the console log of one work item (--job and --work-item), or of
every failed work item of a build (owner/repo and --build). Requires access
to the analytics cluster.`,
	Example: `  pipeline helix-console --job 5551234 --work-item 9876 --pager
  pipeline helix-console dotnet/runtime --build 1234567 --compact --tail 200`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tailLines < 0 {
			return provider.RequirePositive("tail", int64(tailLines))
		}
		single := cmd.Flags().Changed("job") || cmd.Flags().Changed("work-item")
		if single == cmd.Flags().Changed("build") {
			return fmt.Errorf("%w: use either --job with --work-item, or owner/repo with --build", provider.ErrInvalidArgument)
		}

		var consoles []provider.WorkItemConsole
		if single {
			if len(args) > 0 {
				return fmt.Errorf("%w: owner/repo is only used with --build", provider.ErrInvalidArgument)
			}
			if err := provider.RequirePositive("job", jobFlag); err != nil {
				return err
			}
			if err := provider.RequirePositive("work-item", workItemFlag); err != nil {
				return err
			}

			svc, err := fullService(cmd.Context())
			if err != nil {
				return err
			}
			console, err := svc.ConsoleForWorkItem(cmd.Context(), jobFlag, workItemFlag)
			if err != nil {
				return err
			}
			consoles = []provider.WorkItemConsole{*console}
		} else {
			if len(args) != 1 {
				return fmt.Errorf("%w: --build needs owner/repo", provider.ErrInvalidArgument)
			}
			repo, err := provider.ParseRepository(args[0])
			if err != nil {
				return err
			}

			svc, err := fullService(cmd.Context())
			if err != nil {
				return err
			}
			consoles, err = svc.ConsolesForBuild(cmd.Context(), repo, buildFlag)
			if err != nil {
				return err
			}
		}

		for i := range consoles {
			consoles[i].Text = sanitize.Compact(consoles[i].Text, compact, tailLines)
		}

		if usePager {
			return tui.Page("Helix console", joinConsoles(consoles))
		}
		return emit(consoles, func(r *tui.Renderer) string { return joinConsoles(consoles) })
	},
}

var prReportCmd = &cobra.Command{
	Use:   "pr-report <owner/repo> <pr>",
	Short: "Join a pull request's builds with their Helix work items",
	Long: `Lists the pull request's builds and attaches each Helix work item to the
build that queued it. Work items whose build is not among the listed builds
are reported separately. Requires access to the analytics cluster.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := provider.ParseRepository(args[0])
		if err != nil {
			return err
		}
		pr, err := parseID("pr", args[1])
		if err != nil {
			return err
		}

		svc, err := fullService(cmd.Context())
		if err != nil {
			return err
		}
		report, err := svc.PullRequestReport(cmd.Context(), repo, pr, top, includeAll)
		if err != nil {
			return err
		}
		return emit(report, func(r *tui.Renderer) string { return r.PullRequestReport(report) })
	},
}

var failureSummaryCmd = &cobra.Command{
	Use:   "failure-summary <build-id>",
	Short: "Group a build's failures by normalized message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build-id", args[0])
		if err != nil {
			return err
		}

		svc, err := buildService(cmd.Context())
		if err != nil {
			return err
		}
		summary, err := svc.FailureSummary(cmd.Context(), id)
		if err != nil {
			return err
		}
		return emit(summary, func(r *tui.Renderer) string { return r.FailureSummary(summary) })
	},
}

// exactlyOne requires exactly one of the named flags to be set.
func exactlyOne(cmd *cobra.Command, names ...string) error {
	set := 0
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of --%s is required", provider.ErrInvalidArgument, strings.Join(names, ", --"))
	}
	return nil
}

func joinConsoles(consoles []provider.WorkItemConsole) string {
	var b strings.Builder
	for i, c := range consoles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== job %d, work item %d ===\n%s", c.JobID, c.WorkItemID, c.Text)
	}
	return b.String()
}

func init() {
	for _, cmd := range []*cobra.Command{buildsCmd, repoBuildsCmd, prBuildsCmd, prReportCmd} {
		cmd.Flags().IntVar(&top, "top", defaultTop, "Maximum number of builds")
	}
	buildsCmd.Flags().IntVar(&definitionID, "definition", 0, "Pipeline definition id")
	repoBuildsCmd.Flags().StringVar(&reasonFilter, "filter", "all", "Build reason: all, pr or ci")
	timelineCmd.Flags().BoolVar(&showTree, "tree", false, "Render the timeline as a tree")
	downloadCmd.Flags().StringVarP(&outputFile, "file", "f", "", "Destination file (default <artifact>.zip)")

	workItemsCmd.Flags().IntVar(&buildFlag, "build", 0, "Build id")
	workItemsCmd.Flags().IntVar(&prFlag, "pr", 0, "Pull request number")
	for _, cmd := range []*cobra.Command{workItemsCmd, prReportCmd} {
		cmd.Flags().BoolVar(&includeAll, "all", false, "Include passed work items (expensive, rarely needed)")
	}

	consoleCmd.Flags().Int64Var(&jobFlag, "job", 0, "Helix job id")
	consoleCmd.Flags().Int64Var(&workItemFlag, "work-item", 0, "Helix work item id")
	consoleCmd.Flags().IntVar(&buildFlag, "build", 0, "Build id; fetches every failed work item")
	consoleCmd.Flags().BoolVar(&usePager, "pager", false, "Show output in a scrollable pager")
	consoleCmd.Flags().BoolVar(&compact, "compact", false, "Strip timestamps, hashes and repeated lines")
	consoleCmd.Flags().IntVar(&tailLines, "tail", 0, "Keep only the last N lines of each console")

	rootCmd.AddCommand(
		buildsCmd, repoBuildsCmd, prBuildsCmd,
		testsCmd, timelineCmd, artifactsCmd, jobsCmd, downloadCmd,
		workItemsCmd, consoleCmd, prReportCmd, failureSummaryCmd,
	)
}

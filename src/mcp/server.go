// Package mcp exposes the query service as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pipeline-agent/src/logger"
	"pipeline-agent/src/query"
)

// defaultTop is the build listing size when the caller gives none.
const defaultTop = 10

// Server is the MCP server for pipeline.
type Server struct {
	mcpServer *server.MCPServer
	svc       *query.Service
	log       logger.Logger
}

// NewServer creates a new MCP server backed by svc.
func NewServer(svc *query.Service, version string, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"pipeline",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		svc:       svc,
		log:       logger.OrSilent(log),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	buildID := mcp.WithNumber("buildId",
		mcp.Required(),
		mcp.Description("Build id"),
	)
	top := mcp.WithNumber("top",
		mcp.Description("Maximum number of builds to return (default: 10)"),
	)
	repository := mcp.WithString("repository",
		mcp.Required(),
		mcp.Description("GitHub repository in owner/repo format, e.g. dotnet/runtime"),
	)
	prNumber := mcp.WithNumber("prNumber",
		mcp.Required(),
		mcp.Description("Pull request number"),
	)
	includeAll := mcp.WithBoolean("includeAll",
		mcp.Description("Include passed work items (default: failed only). Expensive and rarely needed; leave unset unless the passing items matter."),
	)

	s.mcpServer.AddTool(mcp.NewTool("azdo_recent_builds",
		mcp.WithDescription("List the most recent builds of the project, newest first, optionally for one pipeline definition."),
		mcp.WithNumber("definitionId",
			mcp.Description("Pipeline definition id"),
		),
		top,
	), s.handleRecentBuilds)

	s.mcpServer.AddTool(mcp.NewTool("azdo_builds_for_repo",
		mcp.WithDescription("List builds of a GitHub repository, filtered by trigger."),
		repository,
		top,
		mcp.WithString("filter",
			mcp.Description("Build reason: all, pr or ci (default: all)"),
			mcp.Enum("all", "pr", "ci"),
		),
	), s.handleBuildsForRepo)

	s.mcpServer.AddTool(mcp.NewTool("azdo_pr_builds",
		mcp.WithDescription("List builds of a pull request's merge ref."),
		repository,
		prNumber,
		top,
	), s.handlePullRequestBuilds)

	s.mcpServer.AddTool(mcp.NewTool("azdo_test_failures",
		mcp.WithDescription("List failed test results of every test run of a build, with error messages and stack traces."),
		buildID,
	), s.handleTestFailures)

	s.mcpServer.AddTool(mcp.NewTool("azdo_timeline",
		mcp.WithDescription("Get the timeline records (stages, jobs, tasks) of a build, including issues and log links."),
		buildID,
	), s.handleTimeline)

	s.mcpServer.AddTool(mcp.NewTool("azdo_artifacts",
		mcp.WithDescription("List artifacts published by a build."),
		buildID,
	), s.handleArtifacts)

	s.mcpServer.AddTool(mcp.NewTool("azdo_jobs",
		mcp.WithDescription("List the job records of a build in execution order."),
		buildID,
	), s.handleJobs)

	s.mcpServer.AddTool(mcp.NewTool("helix_work_items_for_build",
		mcp.WithDescription("List Helix work items queued by a build. Requires VPN access to the analytics cluster."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner, e.g. dotnet"),
		),
		mcp.WithString("repository",
			mcp.Required(),
			mcp.Description("Repository name, e.g. runtime"),
		),
		mcp.WithNumber("buildNumber",
			mcp.Required(),
			mcp.Description("Build id"),
		),
		includeAll,
	), s.handleWorkItemsForBuild)

	s.mcpServer.AddTool(mcp.NewTool("helix_work_items_for_pr",
		mcp.WithDescription("List Helix work items queued from a pull request's merge ref. Requires VPN access to the analytics cluster."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner, e.g. dotnet"),
		),
		mcp.WithString("repository",
			mcp.Required(),
			mcp.Description("Repository name, e.g. runtime"),
		),
		prNumber,
		includeAll,
	), s.handleWorkItemsForPullRequest)

	s.mcpServer.AddTool(mcp.NewTool("helix_work_item_console",
		mcp.WithDescription("Fetch the console log of one Helix work item."),
		mcp.WithNumber("jobId",
			mcp.Required(),
			mcp.Description("Helix job id"),
		),
		mcp.WithNumber("workItemId",
			mcp.Required(),
			mcp.Description("Helix work item id"),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Strip timestamps, hashes and repeated lines (default: false)"),
		),
		mcp.WithNumber("tail",
			mcp.Description("Keep only the last N lines (default: all)"),
		),
	), s.handleWorkItemConsole)

	s.mcpServer.AddTool(mcp.NewTool("pr_report",
		mcp.WithDescription("Join a pull request's builds with the Helix work items each of them queued."),
		repository,
		prNumber,
		top,
		includeAll,
	), s.handlePullRequestReport)

	s.mcpServer.AddTool(mcp.NewTool("failure_summary",
		mcp.WithDescription("Group a build's failed tests and error issues by normalized message, largest group first."),
		buildID,
	), s.handleFailureSummary)
}

// Run serves the tools over stdin/stdout.
func (s *Server) Run() error {
	s.log.Info("Serving MCP tools over stdio")
	return server.ServeStdio(s.mcpServer)
}

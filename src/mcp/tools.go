package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"pipeline-agent/src/provider"
	"pipeline-agent/src/sanitize"
)

// jsonResult renders v as indented JSON text.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err to the caller as a tool error rather than a
// protocol error.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
}

// wholeNumber reads a numeric argument, rejecting fractional values rather
// than truncating them.
func wholeNumber(request mcp.CallToolRequest, name string, def int) (int, error) {
	v := request.GetFloat(name, float64(def))
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %v", provider.ErrInvalidArgument, name, v)
	}
	return int(v), nil
}

func positiveInt(request mcp.CallToolRequest, name string) (int, error) {
	v, err := wholeNumber(request, name, 0)
	if err != nil {
		return 0, err
	}
	if err := provider.RequirePositive(name, int64(v)); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Server) handleRecentBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var definitionID *int
	id, err := wholeNumber(request, "definitionId", 0)
	if err != nil {
		return errorResult(err)
	}
	if id != 0 {
		definitionID = &id
	}
	top, err := wholeNumber(request, "top", defaultTop)
	if err != nil {
		return errorResult(err)
	}

	builds, err := s.svc.ListRecentBuilds(ctx, definitionID, top)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(builds)
}

func (s *Server) handleBuildsForRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := provider.ParseRepository(request.GetString("repository", ""))
	if err != nil {
		return errorResult(err)
	}
	reason, err := provider.ParseReasonFilter(request.GetString("filter", "all"))
	if err != nil {
		return errorResult(err)
	}
	top, err := wholeNumber(request, "top", defaultTop)
	if err != nil {
		return errorResult(err)
	}

	builds, err := s.svc.ListBuildsForRepository(ctx, repo, top, reason)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(builds)
}

func (s *Server) handlePullRequestBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := provider.ParseRepository(request.GetString("repository", ""))
	if err != nil {
		return errorResult(err)
	}
	pr, err := positiveInt(request, "prNumber")
	if err != nil {
		return errorResult(err)
	}
	top, err := wholeNumber(request, "top", defaultTop)
	if err != nil {
		return errorResult(err)
	}

	builds, err := s.svc.ListBuildsForPullRequest(ctx, repo, pr, top)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(builds)
}

func (s *Server) handleTestFailures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := positiveInt(request, "buildId")
	if err != nil {
		return errorResult(err)
	}

	failures, err := s.svc.GetTestFailures(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(failures)
}

func (s *Server) handleTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := positiveInt(request, "buildId")
	if err != nil {
		return errorResult(err)
	}

	timeline, err := s.svc.GetTimeline(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(timeline)
}

func (s *Server) handleArtifacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := positiveInt(request, "buildId")
	if err != nil {
		return errorResult(err)
	}

	artifacts, err := s.svc.GetArtifacts(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(artifacts)
}

func (s *Server) handleJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := positiveInt(request, "buildId")
	if err != nil {
		return errorResult(err)
	}

	jobs, err := s.svc.Jobs(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(jobs)
}

func (s *Server) handleWorkItemsForBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := provider.NewRepositoryRef(request.GetString("owner", ""), request.GetString("repository", ""))
	if err != nil {
		return errorResult(err)
	}
	id, err := positiveInt(request, "buildNumber")
	if err != nil {
		return errorResult(err)
	}

	items, err := s.svc.WorkItemsForBuild(ctx, repo, id, request.GetBool("includeAll", false))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(items)
}

func (s *Server) handleWorkItemsForPullRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := provider.NewRepositoryRef(request.GetString("owner", ""), request.GetString("repository", ""))
	if err != nil {
		return errorResult(err)
	}
	pr, err := positiveInt(request, "prNumber")
	if err != nil {
		return errorResult(err)
	}

	items, err := s.svc.WorkItemsForPullRequest(ctx, repo, pr, request.GetBool("includeAll", false))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(items)
}

func (s *Server) handleWorkItemConsole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := positiveInt(request, "jobId")
	if err != nil {
		return errorResult(err)
	}
	workItemID, err := positiveInt(request, "workItemId")
	if err != nil {
		return errorResult(err)
	}
	tail, err := wholeNumber(request, "tail", 0)
	if err != nil {
		return errorResult(err)
	}
	if tail < 0 {
		return errorResult(provider.RequirePositive("tail", int64(tail)))
	}

	console, err := s.svc.ConsoleForWorkItem(ctx, int64(jobID), int64(workItemID))
	if err != nil {
		return errorResult(err)
	}
	console.Text = sanitize.Compact(console.Text, request.GetBool("compact", false), tail)
	return jsonResult(console)
}

func (s *Server) handlePullRequestReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, err := provider.ParseRepository(request.GetString("repository", ""))
	if err != nil {
		return errorResult(err)
	}
	pr, err := positiveInt(request, "prNumber")
	if err != nil {
		return errorResult(err)
	}
	top, err := wholeNumber(request, "top", defaultTop)
	if err != nil {
		return errorResult(err)
	}

	report, err := s.svc.PullRequestReport(ctx, repo, pr, top, request.GetBool("includeAll", false))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(report)
}

func (s *Server) handleFailureSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := positiveInt(request, "buildId")
	if err != nil {
		return errorResult(err)
	}

	summary, err := s.svc.FailureSummary(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(summary)
}

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-agent/src/provider"
	"pipeline-agent/src/query"
)

type fakeBuilds struct {
	builds     []provider.Build
	err        error
	lastLimit  int
	lastDef    *int
	lastReason provider.ReasonFilter
	lastRepo   provider.RepositoryRef
}

func (f *fakeBuilds) ListRecentBuilds(ctx context.Context, definitionID *int, limit int) ([]provider.Build, error) {
	f.lastDef, f.lastLimit = definitionID, limit
	return f.builds, f.err
}

func (f *fakeBuilds) ListBuildsForRepository(ctx context.Context, repo provider.RepositoryRef, limit int, reason provider.ReasonFilter) ([]provider.Build, error) {
	f.lastRepo, f.lastLimit, f.lastReason = repo, limit, reason
	return f.builds, f.err
}

func (f *fakeBuilds) ListBuildsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, limit int) ([]provider.Build, error) {
	f.lastRepo, f.lastLimit = repo, limit
	return f.builds, f.err
}

func (f *fakeBuilds) GetTestFailures(ctx context.Context, buildID int) ([]provider.TestFailure, error) {
	return []provider.TestFailure{}, f.err
}

func (f *fakeBuilds) GetTimeline(ctx context.Context, buildID int) (*provider.Timeline, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Timeline{Records: []provider.TimelineRecord{
		{ID: "j2", Name: "Windows", RecordType: "Job", Order: 2},
		{ID: "j1", Name: "Linux", RecordType: "Job", Order: 1},
		{ID: "t1", Name: "Checkout", RecordType: "Task", Order: 1},
	}}, nil
}

func (f *fakeBuilds) GetArtifacts(ctx context.Context, buildID int) ([]provider.Artifact, error) {
	return []provider.Artifact{{ID: 1, Name: "logs"}}, f.err
}

func (f *fakeBuilds) DownloadArtifact(ctx context.Context, buildID int, artifactName string, dst io.Writer) (int64, error) {
	return 0, f.err
}

type fakeAnalytics struct {
	items      []provider.WorkItem
	err        error
	includeAll bool
	repo       provider.RepositoryRef
}

func (f *fakeAnalytics) WorkItemsForBuild(ctx context.Context, repo provider.RepositoryRef, buildID int, includeAll bool) ([]provider.WorkItem, error) {
	f.repo, f.includeAll = repo, includeAll
	return f.items, f.err
}

func (f *fakeAnalytics) WorkItemsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, includeAll bool) ([]provider.WorkItem, error) {
	f.repo, f.includeAll = repo, includeAll
	return f.items, f.err
}

func (f *fakeAnalytics) WorkItemForIdentity(ctx context.Context, jobID, workItemID int64) (*provider.WorkItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.WorkItem{JobID: jobID, WorkItemID: workItemID}, nil
}

type fakeConsoles struct {
	text string
}

func (f *fakeConsoles) FetchConsole(ctx context.Context, item provider.WorkItem) (*provider.WorkItemConsole, error) {
	return &provider.WorkItemConsole{JobID: item.JobID, WorkItemID: item.WorkItemID, Text: f.text}, nil
}

func (f *fakeConsoles) FetchConsoles(ctx context.Context, items []provider.WorkItem) ([]provider.WorkItemConsole, error) {
	return nil, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestRegisteredTools(t *testing.T) {
	s := NewServer(query.New(&fakeBuilds{}, nil, nil, nil), "test", nil)

	response := s.mcpServer.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				InputSchema struct {
					Properties map[string]struct {
						Description string `json:"description"`
					} `json:"properties"`
				} `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	var names []string
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
		if includeAll, ok := tool.InputSchema.Properties["includeAll"]; ok {
			assert.Contains(t, includeAll.Description, "Expensive and rarely needed", tool.Name)
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"azdo_artifacts",
		"azdo_builds_for_repo",
		"azdo_jobs",
		"azdo_pr_builds",
		"azdo_recent_builds",
		"azdo_test_failures",
		"azdo_timeline",
		"failure_summary",
		"helix_work_item_console",
		"helix_work_items_for_build",
		"helix_work_items_for_pr",
		"pr_report",
	}, names)
}

func TestRecentBuilds(t *testing.T) {
	builds := &fakeBuilds{builds: []provider.Build{{ID: 42, BuildNumber: "20261001.1", Status: "completed"}}}
	s := NewServer(query.New(builds, nil, nil, nil), "test", nil)

	result, err := s.handleRecentBuilds(context.Background(), callRequest("azdo_recent_builds", map[string]any{}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, defaultTop, builds.lastLimit)
	assert.Nil(t, builds.lastDef)

	var decoded []provider.Build
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, 42, decoded[0].ID)

	_, err = s.handleRecentBuilds(context.Background(), callRequest("azdo_recent_builds", map[string]any{
		"definitionId": float64(7),
		"top":          float64(3),
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, builds.lastLimit)
	require.NotNil(t, builds.lastDef)
	assert.Equal(t, 7, *builds.lastDef)
}

func TestBuildsForRepo(t *testing.T) {
	builds := &fakeBuilds{builds: []provider.Build{}}
	s := NewServer(query.New(builds, nil, nil, nil), "test", nil)

	result, err := s.handleBuildsForRepo(context.Background(), callRequest("azdo_builds_for_repo", map[string]any{
		"repository": "dotnet/runtime",
		"filter":     "pr",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "[]", resultText(t, result))
	assert.Equal(t, provider.RepositoryRef{Owner: "dotnet", Name: "runtime"}, builds.lastRepo)
	assert.Equal(t, provider.ReasonPullRequest, builds.lastReason)

	result, err = s.handleBuildsForRepo(context.Background(), callRequest("azdo_builds_for_repo", map[string]any{
		"repository": "runtime",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "owner/repo")

	result, err = s.handleBuildsForRepo(context.Background(), callRequest("azdo_builds_for_repo", map[string]any{
		"repository": "dotnet/runtime",
		"filter":     "nightly",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestBuildIDRequired(t *testing.T) {
	s := NewServer(query.New(&fakeBuilds{}, nil, nil, nil), "test", nil)

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"azdo_test_failures": s.handleTestFailures,
		"azdo_timeline":      s.handleTimeline,
		"azdo_artifacts":     s.handleArtifacts,
		"azdo_jobs":          s.handleJobs,
		"failure_summary":    s.handleFailureSummary,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(context.Background(), callRequest(name, map[string]any{}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), "buildId must be a positive integer")

			result, err = handler(context.Background(), callRequest(name, map[string]any{"buildId": float64(5)}))
			require.NoError(t, err)
			assert.False(t, result.IsError)
		})
	}
}

func TestFractionalArgumentsRejected(t *testing.T) {
	builds := &fakeBuilds{}
	s := NewServer(query.New(builds, nil, nil, nil), "test", nil)

	result, err := s.handleTimeline(context.Background(), callRequest("azdo_timeline", map[string]any{"buildId": 12.7}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "buildId must be a whole number, got 12.7")

	result, err = s.handleRecentBuilds(context.Background(), callRequest("azdo_recent_builds", map[string]any{"top": 2.5}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "top must be a whole number, got 2.5")
	assert.Zero(t, builds.lastLimit)

	result, err = s.handleRecentBuilds(context.Background(), callRequest("azdo_recent_builds", map[string]any{"top": float64(3)}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 3, builds.lastLimit)
}

func TestJobs(t *testing.T) {
	s := NewServer(query.New(&fakeBuilds{}, nil, nil, nil), "test", nil)

	result, err := s.handleJobs(context.Background(), callRequest("azdo_jobs", map[string]any{"buildId": float64(5)}))
	require.NoError(t, err)

	var jobs []provider.TimelineRecord
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "Linux", jobs[0].Name)
	assert.Equal(t, "Windows", jobs[1].Name)
}

func TestBackendErrorIsToolError(t *testing.T) {
	s := NewServer(query.New(&fakeBuilds{err: &provider.StatusError{Operation: "GET", Target: "builds", StatusCode: 401}}, nil, nil, nil), "test", nil)

	result, err := s.handleTimeline(context.Background(), callRequest("azdo_timeline", map[string]any{"buildId": float64(5)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Authentication failed")
}

func TestWorkItemsForBuild(t *testing.T) {
	analytics := &fakeAnalytics{items: []provider.WorkItem{{FriendlyName: "System.Runtime.Tests", ExitCode: 1}}}
	s := NewServer(query.New(&fakeBuilds{}, analytics, nil, nil), "test", nil)

	result, err := s.handleWorkItemsForBuild(context.Background(), callRequest("helix_work_items_for_build", map[string]any{
		"owner":       "dotnet",
		"repository":  "runtime",
		"buildNumber": float64(1234),
		"includeAll":  true,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, analytics.includeAll)
	assert.Equal(t, "dotnet/runtime", analytics.repo.String())
	assert.Contains(t, resultText(t, result), `"friendlyName": "System.Runtime.Tests"`)
}

func TestWorkItemsWithoutAnalytics(t *testing.T) {
	s := NewServer(query.New(&fakeBuilds{}, nil, nil, nil), "test", nil)

	result, err := s.handleWorkItemsForPullRequest(context.Background(), callRequest("helix_work_items_for_pr", map[string]any{
		"owner":      "dotnet",
		"repository": "runtime",
		"prNumber":   float64(99),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), provider.ErrAnalyticsUnavailable.Error())
}

func TestWorkItemConsole(t *testing.T) {
	consoles := &fakeConsoles{text: "one\r\ntwo\r\nthree\r\n"}
	s := NewServer(query.New(&fakeBuilds{}, &fakeAnalytics{}, consoles, nil), "test", nil)

	result, err := s.handleWorkItemConsole(context.Background(), callRequest("helix_work_item_console", map[string]any{
		"jobId":      float64(10),
		"workItemId": float64(20),
		"tail":       float64(2),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var console provider.WorkItemConsole
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &console))
	assert.Equal(t, int64(10), console.JobID)
	assert.Equal(t, int64(20), console.WorkItemID)
	assert.Equal(t, "two\nthree", console.Text)

	result, err = s.handleWorkItemConsole(context.Background(), callRequest("helix_work_item_console", map[string]any{
		"jobId":      float64(10),
		"workItemId": float64(20),
		"tail":       float64(-1),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestPullRequestReport(t *testing.T) {
	builds := &fakeBuilds{builds: []provider.Build{{ID: 11}}}
	analytics := &fakeAnalytics{items: []provider.WorkItem{{FriendlyName: "x", AzdoBuildID: 11, ExitCode: 1}}}
	s := NewServer(query.New(builds, analytics, nil, nil), "test", nil)

	result, err := s.handlePullRequestReport(context.Background(), callRequest("pr_report", map[string]any{
		"repository": "dotnet/runtime",
		"prNumber":   float64(7),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var report query.PullRequestReport
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, "refs/pull/7/merge", report.MergeRef)
	require.Len(t, report.Builds, 1)
	assert.Len(t, report.Builds[0].WorkItems, 1)
	assert.Equal(t, defaultTop, builds.lastLimit)
}

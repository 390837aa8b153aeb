package azdo

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"pipeline-agent/src/provider"
)

// repositoryType is the hosting type passed with every repository filter.
const repositoryType = "GitHub"

// ListRecentBuilds returns up to limit builds, newest first.
func (c *Client) ListRecentBuilds(ctx context.Context, definitionID *int, limit int) ([]provider.Build, error) {
	if err := provider.RequirePositive("limit", int64(limit)); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(limit))
	target := "recent"
	if definitionID != nil {
		if err := provider.RequirePositive("definition id", int64(*definitionID)); err != nil {
			return nil, err
		}
		query.Set("definitions", strconv.Itoa(*definitionID))
		target = fmt.Sprintf("definition %d", *definitionID)
	}

	return c.listBuilds(ctx, target, query)
}

// ListBuildsForRepository returns builds of a GitHub repository, optionally
// restricted by trigger reason.
func (c *Client) ListBuildsForRepository(ctx context.Context, repo provider.RepositoryRef, limit int, reason provider.ReasonFilter) ([]provider.Build, error) {
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("limit", int64(limit)); err != nil {
		return nil, err
	}
	if err := reason.Validate(); err != nil {
		return nil, err
	}

	query := repositoryQuery(repo, limit)
	if reason != provider.ReasonAll {
		query.Set("reasonFilter", string(reason))
	}

	return c.listBuilds(ctx, repo.String(), query)
}

// ListBuildsForPullRequest returns builds of the pull request's merge ref.
func (c *Client) ListBuildsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, limit int) ([]provider.Build, error) {
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("pull request number", int64(prNumber)); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("limit", int64(limit)); err != nil {
		return nil, err
	}

	query := repositoryQuery(repo, limit)
	query.Set("branchName", provider.MergeRef(prNumber))

	return c.listBuilds(ctx, fmt.Sprintf("%s#%d", repo, prNumber), query)
}

func repositoryQuery(repo provider.RepositoryRef, limit int) url.Values {
	query := url.Values{}
	query.Set("$top", strconv.Itoa(limit))
	query.Set("repositoryId", repo.String())
	query.Set("repositoryType", repositoryType)
	return query
}

func (c *Client) listBuilds(ctx context.Context, target string, query url.Values) ([]provider.Build, error) {
	raw, err := getList[build](ctx, c, "list builds", target, c.apiURL("build/builds", query))
	if err != nil {
		return nil, err
	}

	builds := make([]provider.Build, 0, len(raw))
	for _, b := range raw {
		builds = append(builds, c.convertBuild(b))
	}
	return builds, nil
}

func (c *Client) convertBuild(b build) provider.Build {
	definition := "unknown"
	if b.Definition != nil {
		definition = b.Definition.Name
	}
	return provider.Build{
		ID:             b.ID,
		BuildNumber:    b.BuildNumber,
		Status:         b.Status,
		Result:         b.Result,
		URI:            c.BuildURI(b.ID),
		SourceBranch:   b.SourceBranch,
		DefinitionName: definition,
		FinishTime:     b.FinishTime,
	}
}

// GetTestFailures lists the build's test runs, then fetches the failed
// results of each run concurrently. Failures are returned in run order.
func (c *Client) GetTestFailures(ctx context.Context, buildID int) ([]provider.TestFailure, error) {
	if err := provider.RequirePositive("build id", int64(buildID)); err != nil {
		return nil, err
	}

	target := fmt.Sprintf("build %d", buildID)
	query := url.Values{}
	query.Set("buildUri", fmt.Sprintf("vstfs:///Build/Build/%d", buildID))

	runs, err := getList[testRun](ctx, c, "list test runs", target, c.apiURL("test/runs", query))
	if err != nil {
		return nil, err
	}

	perRun := make([][]provider.TestFailure, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOut)

	for i, run := range runs {
		g.Go(func() error {
			failures, err := c.runFailures(gctx, run)
			if err != nil {
				return err
			}
			perRun[i] = failures
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failures := []provider.TestFailure{}
	for _, f := range perRun {
		failures = append(failures, f...)
	}
	return failures, nil
}

func (c *Client) runFailures(ctx context.Context, run testRun) ([]provider.TestFailure, error) {
	query := url.Values{}
	query.Set("outcomes", "Failed")
	path := fmt.Sprintf("test/Runs/%d/results", run.ID)

	results, err := getList[testResult](ctx, c, "list test results", fmt.Sprintf("run %d", run.ID), c.apiURL(path, query))
	if err != nil {
		return nil, err
	}

	failures := make([]provider.TestFailure, 0, len(results))
	for _, r := range results {
		failures = append(failures, provider.TestFailure{
			TestCaseTitle: r.TestCaseTitle,
			Outcome:       r.Outcome,
			ErrorMessage:  r.ErrorMessage,
			StackTrace:    r.StackTrace,
			TestRunID:     run.ID,
			TestRunName:   run.Name,
		})
	}
	return failures, nil
}

// GetTimeline returns the build's flat timeline records.
func (c *Client) GetTimeline(ctx context.Context, buildID int) (*provider.Timeline, error) {
	if err := provider.RequirePositive("build id", int64(buildID)); err != nil {
		return nil, err
	}

	var raw timeline
	path := fmt.Sprintf("build/builds/%d/timeline", buildID)
	if err := c.getJSON(ctx, "get timeline", fmt.Sprintf("build %d", buildID), c.apiURL(path, nil), &raw); err != nil {
		return nil, err
	}

	records := make([]provider.TimelineRecord, 0, len(raw.Records))
	for _, r := range raw.Records {
		records = append(records, convertRecord(r))
	}
	return &provider.Timeline{Records: records}, nil
}

func convertRecord(r timelineRecord) provider.TimelineRecord {
	issues := make([]provider.TimelineIssue, 0, len(r.Issues))
	for _, i := range r.Issues {
		issues = append(issues, provider.TimelineIssue{
			Type:     i.Type,
			Message:  i.Message,
			Category: i.Category,
		})
	}

	var logURL *string
	if r.Log != nil {
		logURL = r.Log.URL
	}

	return provider.TimelineRecord{
		ID:           r.ID,
		ParentID:     r.ParentID,
		Name:         r.Name,
		RecordType:   r.Type,
		Order:        r.Order,
		State:        r.State,
		Result:       r.Result,
		ErrorCount:   r.ErrorCount,
		WarningCount: r.WarningCount,
		StartTime:    r.StartTime,
		FinishTime:   r.FinishTime,
		Issues:       issues,
		WorkerName:   r.WorkerName,
		LogURL:       logURL,
	}
}

// GetArtifacts lists the artifacts published by a build.
func (c *Client) GetArtifacts(ctx context.Context, buildID int) ([]provider.Artifact, error) {
	if err := provider.RequirePositive("build id", int64(buildID)); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("build/builds/%d/artifacts", buildID)
	raw, err := getList[artifact](ctx, c, "list artifacts", fmt.Sprintf("build %d", buildID), c.apiURL(path, nil))
	if err != nil {
		return nil, err
	}

	artifacts := make([]provider.Artifact, 0, len(raw))
	for _, a := range raw {
		out := provider.Artifact{ID: a.ID, Name: a.Name}
		if a.Resource != nil {
			out.DownloadURL = a.Resource.DownloadURL
			out.ResourceType = a.Resource.Type
		}
		artifacts = append(artifacts, out)
	}
	return artifacts, nil
}

// DownloadArtifact resolves the artifact by exact name and streams it into
// dst. No download is attempted when the name does not resolve.
func (c *Client) DownloadArtifact(ctx context.Context, buildID int, artifactName string, dst io.Writer) (int64, error) {
	if artifactName == "" {
		return 0, fmt.Errorf("%w: artifact name must not be empty", provider.ErrInvalidArgument)
	}

	artifacts, err := c.GetArtifacts(ctx, buildID)
	if err != nil {
		return 0, err
	}

	var match *provider.Artifact
	for i := range artifacts {
		if artifacts[i].Name == artifactName {
			match = &artifacts[i]
			break
		}
	}
	if match == nil {
		return 0, fmt.Errorf("%w: artifact %q for build %d", provider.ErrNotFound, artifactName, buildID)
	}
	if match.DownloadURL == nil || *match.DownloadURL == "" {
		return 0, fmt.Errorf("%w: artifact %q for build %d has no download URL", provider.ErrNotFound, artifactName, buildID)
	}

	c.log.Info("Downloading artifact %s from build %d", artifactName, buildID)
	return c.stream(ctx, "download artifact", artifactName, *match.DownloadURL, dst)
}

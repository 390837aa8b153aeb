package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// BuildQueries is the read surface of the build service.
type BuildQueries interface {
	// ListRecentBuilds returns up to limit builds, newest first, optionally
	// restricted to one pipeline definition.
	ListRecentBuilds(ctx context.Context, definitionID *int, limit int) ([]Build, error)

	// ListBuildsForRepository returns builds of a GitHub-hosted repository.
	ListBuildsForRepository(ctx context.Context, repo RepositoryRef, limit int, reason ReasonFilter) ([]Build, error)

	// ListBuildsForPullRequest returns builds of the pull request's merge ref.
	ListBuildsForPullRequest(ctx context.Context, repo RepositoryRef, prNumber int, limit int) ([]Build, error)

	// GetTestFailures returns the failed test results of every run of a build.
	GetTestFailures(ctx context.Context, buildID int) ([]TestFailure, error)

	// GetTimeline returns the raw timeline records of a build.
	GetTimeline(ctx context.Context, buildID int) (*Timeline, error)

	// GetArtifacts lists the artifacts published by a build.
	GetArtifacts(ctx context.Context, buildID int) ([]Artifact, error)

	// DownloadArtifact streams the named artifact into dst.
	DownloadArtifact(ctx context.Context, buildID int, artifactName string, dst io.Writer) (int64, error)
}

// AnalyticsQueries is the read surface of the work item analytics service.
type AnalyticsQueries interface {
	// WorkItemsForBuild returns work items correlated to a build id. Only
	// failed work items are returned unless includeAll is set.
	WorkItemsForBuild(ctx context.Context, repo RepositoryRef, buildID int, includeAll bool) ([]WorkItem, error)

	// WorkItemsForPullRequest returns work items queued from the pull
	// request's merge ref. Only failed work items unless includeAll is set.
	WorkItemsForPullRequest(ctx context.Context, repo RepositoryRef, prNumber int, includeAll bool) ([]WorkItem, error)

	// WorkItemForIdentity returns exactly one work item or fails.
	WorkItemForIdentity(ctx context.Context, jobID, workItemID int64) (*WorkItem, error)
}

// ConsoleFetcher retrieves work item console logs.
type ConsoleFetcher interface {
	FetchConsole(ctx context.Context, item WorkItem) (*WorkItemConsole, error)
	FetchConsoles(ctx context.Context, items []WorkItem) ([]WorkItemConsole, error)
}

// RepositoryRef identifies a GitHub repository as owner/name.
type RepositoryRef struct {
	Owner string
	Name  string
}

// ParseRepository parses "owner/name".
func ParseRepository(s string) (RepositoryRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return RepositoryRef{}, fmt.Errorf("%w: repository must be in owner/repo format, got %q", ErrInvalidArgument, s)
	}
	return RepositoryRef{Owner: parts[0], Name: parts[1]}, nil
}

// NewRepositoryRef builds a reference from separate owner and name values.
func NewRepositoryRef(owner, name string) (RepositoryRef, error) {
	return ParseRepository(owner + "/" + name)
}

func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// Validate rejects a reference with an empty owner or name.
func (r RepositoryRef) Validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Name) == "" || strings.Contains(r.Owner+r.Name, "/") {
		return fmt.Errorf("%w: repository must be in owner/repo format, got %q", ErrInvalidArgument, r.String())
	}
	return nil
}

// MergeRef is the branch name the build service and the analytics service
// both use for a pull request's merge commit.
func MergeRef(prNumber int) string {
	return fmt.Sprintf("refs/pull/%d/merge", prNumber)
}

// ReasonFilter selects builds by what triggered them.
type ReasonFilter string

const (
	ReasonAll         ReasonFilter = ""
	ReasonPullRequest ReasonFilter = "pullRequest"
	ReasonCI          ReasonFilter = "individualCI,batchedCI"
)

// ParseReasonFilter maps the user-facing words "all", "pr" and "ci".
func ParseReasonFilter(s string) (ReasonFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ReasonAll, nil
	case "pr":
		return ReasonPullRequest, nil
	case "ci":
		return ReasonCI, nil
	}
	return ReasonAll, fmt.Errorf("%w: filter must be one of all, pr, ci, got %q", ErrInvalidArgument, s)
}

// Validate rejects values other than the three known filters.
func (f ReasonFilter) Validate() error {
	switch f {
	case ReasonAll, ReasonPullRequest, ReasonCI:
		return nil
	}
	return fmt.Errorf("%w: unknown reason filter %q", ErrInvalidArgument, string(f))
}

// RequirePositive validates ids, counts and limits before any remote call.
func RequirePositive(name string, v int64) error {
	if v < 1 {
		return fmt.Errorf("%w: %s must be a positive integer, got %d", ErrInvalidArgument, name, v)
	}
	return nil
}

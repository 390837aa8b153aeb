// Package query is the single read surface the command line and the tool
// server share. It composes the build service and analytics capabilities
// and derives the views that need both.
package query

import (
	"context"
	"fmt"
	"io"

	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
)

// Service composes the backend capabilities. The analytics half and the
// console fetcher are optional; operations that need them fail with
// provider.ErrAnalyticsUnavailable when absent.
type Service struct {
	builds    provider.BuildQueries
	analytics provider.AnalyticsQueries
	consoles  provider.ConsoleFetcher
	log       logger.Logger
}

// New creates a Service. builds must not be nil.
func New(builds provider.BuildQueries, analytics provider.AnalyticsQueries, consoles provider.ConsoleFetcher, log logger.Logger) *Service {
	return &Service{
		builds:    builds,
		analytics: analytics,
		consoles:  consoles,
		log:       logger.OrSilent(log),
	}
}

func (s *Service) requireAnalytics() error {
	if s.analytics == nil {
		return provider.ErrAnalyticsUnavailable
	}
	return nil
}

func (s *Service) requireConsoles() error {
	if s.analytics == nil || s.consoles == nil {
		return provider.ErrAnalyticsUnavailable
	}
	return nil
}

func (s *Service) ListRecentBuilds(ctx context.Context, definitionID *int, limit int) ([]provider.Build, error) {
	return s.builds.ListRecentBuilds(ctx, definitionID, limit)
}

func (s *Service) ListBuildsForRepository(ctx context.Context, repo provider.RepositoryRef, limit int, reason provider.ReasonFilter) ([]provider.Build, error) {
	return s.builds.ListBuildsForRepository(ctx, repo, limit, reason)
}

func (s *Service) ListBuildsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, limit int) ([]provider.Build, error) {
	return s.builds.ListBuildsForPullRequest(ctx, repo, prNumber, limit)
}

func (s *Service) GetTestFailures(ctx context.Context, buildID int) ([]provider.TestFailure, error) {
	return s.builds.GetTestFailures(ctx, buildID)
}

func (s *Service) GetTimeline(ctx context.Context, buildID int) (*provider.Timeline, error) {
	return s.builds.GetTimeline(ctx, buildID)
}

func (s *Service) GetArtifacts(ctx context.Context, buildID int) ([]provider.Artifact, error) {
	return s.builds.GetArtifacts(ctx, buildID)
}

func (s *Service) DownloadArtifact(ctx context.Context, buildID int, artifactName string, dst io.Writer) (int64, error) {
	return s.builds.DownloadArtifact(ctx, buildID, artifactName, dst)
}

// Jobs returns the Job records of a build's timeline, ordered by Order.
func (s *Service) Jobs(ctx context.Context, buildID int) ([]provider.TimelineRecord, error) {
	timeline, err := s.builds.GetTimeline(ctx, buildID)
	if err != nil {
		return nil, err
	}
	return timeline.Jobs(), nil
}

func (s *Service) WorkItemsForBuild(ctx context.Context, repo provider.RepositoryRef, buildID int, includeAll bool) ([]provider.WorkItem, error) {
	if err := s.requireAnalytics(); err != nil {
		return nil, err
	}
	return s.analytics.WorkItemsForBuild(ctx, repo, buildID, includeAll)
}

func (s *Service) WorkItemsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, includeAll bool) ([]provider.WorkItem, error) {
	if err := s.requireAnalytics(); err != nil {
		return nil, err
	}
	return s.analytics.WorkItemsForPullRequest(ctx, repo, prNumber, includeAll)
}

func (s *Service) WorkItemForIdentity(ctx context.Context, jobID, workItemID int64) (*provider.WorkItem, error) {
	if err := s.requireAnalytics(); err != nil {
		return nil, err
	}
	return s.analytics.WorkItemForIdentity(ctx, jobID, workItemID)
}

// ConsoleForWorkItem resolves a work item by identity and fetches its console.
func (s *Service) ConsoleForWorkItem(ctx context.Context, jobID, workItemID int64) (*provider.WorkItemConsole, error) {
	if err := s.requireConsoles(); err != nil {
		return nil, err
	}

	item, err := s.analytics.WorkItemForIdentity(ctx, jobID, workItemID)
	if err != nil {
		return nil, err
	}
	return s.consoles.FetchConsole(ctx, *item)
}

// ConsolesForBuild fetches the consoles of every failed work item of a build.
func (s *Service) ConsolesForBuild(ctx context.Context, repo provider.RepositoryRef, buildID int) ([]provider.WorkItemConsole, error) {
	if err := s.requireConsoles(); err != nil {
		return nil, err
	}

	items, err := s.analytics.WorkItemsForBuild(ctx, repo, buildID, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []provider.WorkItemConsole{}, nil
	}

	s.log.Info("Fetching %d consoles for build %d", len(items), buildID)
	consoles, err := s.consoles.FetchConsoles(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("consoles for build %d: %w", buildID, err)
	}
	return consoles, nil
}

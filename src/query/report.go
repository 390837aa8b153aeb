package query

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"pipeline-agent/src/patterns"
	"pipeline-agent/src/provider"
)

// BuildWorkItems is one pull request build with the work items it queued.
type BuildWorkItems struct {
	Build     provider.Build      `json:"build"`
	WorkItems []provider.WorkItem `json:"workItems"`
}

// PullRequestReport joins a pull request's builds with its work items.
type PullRequestReport struct {
	Repository   string              `json:"repository"`
	PullRequest  int                 `json:"pullRequest"`
	MergeRef     string              `json:"mergeRef"`
	Builds       []BuildWorkItems    `json:"builds"`
	Uncorrelated []provider.WorkItem `json:"uncorrelated"`
}

// PullRequestReport lists the pull request's builds and attaches each work
// item to the build whose id it carries. Work items whose build is not among
// the listed builds are reported as uncorrelated.
func (s *Service) PullRequestReport(ctx context.Context, repo provider.RepositoryRef, prNumber, limit int, includeAll bool) (*PullRequestReport, error) {
	if err := s.requireAnalytics(); err != nil {
		return nil, err
	}

	var (
		builds []provider.Build
		items  []provider.WorkItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		builds, err = s.builds.ListBuildsForPullRequest(gctx, repo, prNumber, limit)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.analytics.WorkItemsForPullRequest(gctx, repo, prNumber, includeAll)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &PullRequestReport{
		Repository:   repo.String(),
		PullRequest:  prNumber,
		MergeRef:     provider.MergeRef(prNumber),
		Builds:       make([]BuildWorkItems, len(builds)),
		Uncorrelated: []provider.WorkItem{},
	}

	index := make(map[int]int, len(builds))
	for i, b := range builds {
		report.Builds[i] = BuildWorkItems{Build: b, WorkItems: []provider.WorkItem{}}
		if _, dup := index[b.ID]; !dup {
			index[b.ID] = i
		}
	}

	for _, item := range items {
		if i, ok := index[item.AzdoBuildID]; ok {
			report.Builds[i].WorkItems = append(report.Builds[i].WorkItems, item)
			continue
		}
		report.Uncorrelated = append(report.Uncorrelated, item)
	}

	return report, nil
}

// Failure sources.
const (
	SourceTest     = "test"
	SourceTimeline = "timeline"
)

// FailureGroup is a set of failures sharing one normalized signature.
type FailureGroup struct {
	Source    string   `json:"source"`
	Signature string   `json:"signature"`
	Count     int      `json:"count"`
	Example   string   `json:"example"`
	Subjects  []string `json:"subjects"`
}

// FailureSummary groups a build's failures by signature.
type FailureSummary struct {
	BuildID      int            `json:"buildId"`
	TestFailures int            `json:"testFailures"`
	ErrorIssues  int            `json:"errorIssues"`
	Groups       []FailureGroup `json:"groups"`
}

const noMessage = "(no error message)"

// FailureSummary groups failed test results and error issues of the
// timeline by normalized message. Groups are ordered by count, largest
// first; ties keep first-seen order.
func (s *Service) FailureSummary(ctx context.Context, buildID int) (*FailureSummary, error) {
	var (
		failures []provider.TestFailure
		timeline *provider.Timeline
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		failures, err = s.builds.GetTestFailures(gctx, buildID)
		return err
	})
	g.Go(func() error {
		var err error
		timeline, err = s.builds.GetTimeline(gctx, buildID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &FailureSummary{BuildID: buildID, TestFailures: len(failures)}
	grouper := newGrouper()

	for _, f := range failures {
		message := noMessage
		if f.ErrorMessage != nil && *f.ErrorMessage != "" {
			message = *f.ErrorMessage
		}
		grouper.add(SourceTest, message, f.TestCaseTitle)
	}

	for _, r := range timeline.Records {
		for _, issue := range r.Issues {
			if issue.Type != "error" {
				continue
			}
			summary.ErrorIssues++
			grouper.add(SourceTimeline, issue.Message, r.Name)
		}
	}

	summary.Groups = grouper.sorted()
	return summary, nil
}

type groupKey struct {
	source    string
	signature string
}

type grouper struct {
	order  []groupKey
	groups map[groupKey]*FailureGroup
	seen   map[groupKey]map[string]bool
}

func newGrouper() *grouper {
	return &grouper{
		groups: make(map[groupKey]*FailureGroup),
		seen:   make(map[groupKey]map[string]bool),
	}
}

func (g *grouper) add(source, message, subject string) {
	sig := patterns.Signature(message)
	if sig == "" {
		sig = noMessage
	}
	key := groupKey{source: source, signature: sig}

	group, ok := g.groups[key]
	if !ok {
		group = &FailureGroup{
			Source:    source,
			Signature: sig,
			Example:   message,
			Subjects:  []string{},
		}
		g.groups[key] = group
		g.seen[key] = make(map[string]bool)
		g.order = append(g.order, key)
	}

	group.Count++
	if subject != "" && !g.seen[key][subject] {
		g.seen[key][subject] = true
		group.Subjects = append(group.Subjects, subject)
	}
}

func (g *grouper) sorted() []FailureGroup {
	out := make([]FailureGroup, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

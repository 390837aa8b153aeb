// Package helix queries the Helix work item analytics database and fetches
// work item console logs.
package helix

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pipeline-agent/src/credential"
	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
)

const (
	// DefaultClusterURL is the engineering systems analytics cluster.
	DefaultClusterURL = "https://engsrvprod.kusto.windows.net"
	// DefaultDatabase holds the Jobs and WorkItems tables.
	DefaultDatabase = "engineeringdata"
)

// Config locates the analytics database. Building a Config performs no I/O.
type Config struct {
	ClusterURL string
	Database   string
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client implements provider.AnalyticsQueries.
type Client struct {
	kusto *kustoClient
	log   logger.Logger
}

var _ provider.AnalyticsQueries = (*Client)(nil)

// New creates a client around an already-acquired bearer token.
func New(cfg Config, token string) *Client {
	log := logger.OrSilent(cfg.Logger)
	k := &kustoClient{
		clusterURL: strings.TrimRight(cfg.ClusterURL, "/"),
		database:   cfg.Database,
		token:      token,
		httpClient: cfg.HTTPClient,
		log:        log,
	}
	if k.clusterURL == "" {
		k.clusterURL = DefaultClusterURL
	}
	if k.database == "" {
		k.database = DefaultDatabase
	}
	if k.httpClient == nil {
		k.httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{kusto: k, log: log}
}

// Connect exchanges credentials for an analytics token once.
func Connect(ctx context.Context, cfg Config, tokens credential.TokenProvider) (*Client, error) {
	token, err := tokens.Token(ctx, credential.KustoAudience)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire analytics token: %w", err)
	}
	return New(cfg, token), nil
}

// WorkItemsForBuild returns the work items whose jobs carry buildID.
func (c *Client) WorkItemsForBuild(ctx context.Context, repo provider.RepositoryRef, buildID int, includeAll bool) ([]provider.WorkItem, error) {
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("build id", int64(buildID)); err != nil {
		return nil, err
	}

	op := fmt.Sprintf("work items for %s build %d", repo, buildID)
	return c.workItems(ctx, op, workItemsForBuildQuery(repo, buildID, includeAll), includeAll)
}

// WorkItemsForPullRequest returns the work items queued from the pull
// request's merge ref.
func (c *Client) WorkItemsForPullRequest(ctx context.Context, repo provider.RepositoryRef, prNumber int, includeAll bool) ([]provider.WorkItem, error) {
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("pull request number", int64(prNumber)); err != nil {
		return nil, err
	}

	op := fmt.Sprintf("work items for %s#%d", repo, prNumber)
	return c.workItems(ctx, op, workItemsForPullRequestQuery(repo, prNumber, includeAll), includeAll)
}

func (c *Client) workItems(ctx context.Context, op, csl string, includeAll bool) ([]provider.WorkItem, error) {
	table, err := c.kusto.query(ctx, op, csl)
	if err != nil {
		return nil, err
	}

	items, err := decodeWorkItems(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if includeAll {
		return items, nil
	}

	failed := items[:0]
	for _, item := range items {
		if item.Failed() {
			failed = append(failed, item)
		}
	}
	if dropped := len(items) - len(failed); dropped > 0 {
		c.log.Debug("%s: dropped %d passing rows returned by a failed-only query", op, dropped)
	}
	return failed, nil
}

// WorkItemForIdentity returns exactly one work item. No match is
// ErrNotFound and more than one is ErrAmbiguous.
func (c *Client) WorkItemForIdentity(ctx context.Context, jobID, workItemID int64) (*provider.WorkItem, error) {
	if err := provider.RequirePositive("job id", jobID); err != nil {
		return nil, err
	}
	if err := provider.RequirePositive("work item id", workItemID); err != nil {
		return nil, err
	}

	op := fmt.Sprintf("work item %d/%d", jobID, workItemID)
	table, err := c.kusto.query(ctx, op, workItemForIdentityQuery(jobID, workItemID))
	if err != nil {
		return nil, err
	}

	items, err := decodeWorkItems(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%w: job %d work item %d", provider.ErrNotFound, jobID, workItemID)
	case 1:
		return &items[0], nil
	}
	return nil, fmt.Errorf("%w: job %d work item %d matched %d rows", provider.ErrAmbiguous, jobID, workItemID, len(items))
}

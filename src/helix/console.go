package helix

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
)

// DefaultConsoleFanOut bounds concurrent console downloads when FanOut is unset.
const DefaultConsoleFanOut = 8

// ConsoleFetcher downloads work item console logs. Console URIs are
// pre-signed, so requests carry no credential.
type ConsoleFetcher struct {
	HTTPClient *http.Client
	FanOut     int
	Logger     logger.Logger
}

var _ provider.ConsoleFetcher = (*ConsoleFetcher)(nil)

// NewConsoleFetcher returns a fetcher with default limits.
func NewConsoleFetcher(fanOut int, log logger.Logger) *ConsoleFetcher {
	return &ConsoleFetcher{
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		FanOut:     fanOut,
		Logger:     log,
	}
}

func (f *ConsoleFetcher) client() *http.Client {
	if f.HTTPClient == nil {
		return http.DefaultClient
	}
	return f.HTTPClient
}

// FetchConsole returns the console text of one work item.
func (f *ConsoleFetcher) FetchConsole(ctx context.Context, item provider.WorkItem) (*provider.WorkItemConsole, error) {
	target := fmt.Sprintf("job %d work item %d", item.JobID, item.WorkItemID)
	if item.ConsoleURI == "" {
		return nil, fmt.Errorf("%w: %s has no console URI", provider.ErrNotFound, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ConsoleURI, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch console %s: failed to create request: %w", target, err)
	}

	logger.OrSilent(f.Logger).Debug("GET %s", item.ConsoleURI)
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch console %s: %w: %w", target, provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, provider.NewStatusError("fetch console", target, resp.StatusCode, body)
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch console %s: %w: failed to read body: %w", target, provider.ErrTransport, err)
	}

	return &provider.WorkItemConsole{
		JobID:      item.JobID,
		WorkItemID: item.WorkItemID,
		Text:       string(text),
	}, nil
}

// FetchConsoles fetches every console concurrently. Result i belongs to
// items[i]; a single failure fails the batch.
func (f *ConsoleFetcher) FetchConsoles(ctx context.Context, items []provider.WorkItem) ([]provider.WorkItemConsole, error) {
	fanOut := f.FanOut
	if fanOut < 1 {
		fanOut = DefaultConsoleFanOut
	}

	consoles := make([]provider.WorkItemConsole, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)

	for i, item := range items {
		g.Go(func() error {
			console, err := f.FetchConsole(gctx, item)
			if err != nil {
				return err
			}
			consoles[i] = *console
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return consoles, nil
}

package helix

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"pipeline-agent/src/provider"
)

// Property paths inside the job's Properties blob. Dots in key names are
// escaped for gjson.
const (
	propBuildID   = "BuildId"
	propPhaseName = `System\.PhaseName`
	propAttempt   = `System\.JobAttempt`
)

// correlation is what ties a work item back to the build that queued it.
type correlation struct {
	BuildID   int
	PhaseName string
	Attempt   int
}

// parseCorrelation reads the correlation keys. Any missing key or
// non-numeric id is an error; rows are never dropped silently.
func parseCorrelation(properties string) (correlation, error) {
	if !gjson.Valid(properties) {
		return correlation{}, fmt.Errorf("properties are not valid JSON")
	}

	buildID, err := intProperty(properties, propBuildID)
	if err != nil {
		return correlation{}, err
	}
	attempt, err := intProperty(properties, propAttempt)
	if err != nil {
		return correlation{}, err
	}

	phase := gjson.Get(properties, propPhaseName)
	if !phase.Exists() || phase.Type == gjson.Null {
		return correlation{}, fmt.Errorf("property %s is missing", unescape(propPhaseName))
	}

	return correlation{BuildID: buildID, PhaseName: phase.String(), Attempt: attempt}, nil
}

// intProperty accepts a JSON number or a numeric string.
func intProperty(properties, path string) (int, error) {
	v := gjson.Get(properties, path)
	name := unescape(path)

	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int64(v.Num)) {
			return 0, fmt.Errorf("property %s is not an integer: %s", name, v.Raw)
		}
		return int(v.Int()), nil
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0, fmt.Errorf("property %s is not numeric: %q", name, v.Str)
		}
		return n, nil
	case gjson.Null:
		if !v.Exists() {
			return 0, fmt.Errorf("property %s is missing", name)
		}
		return 0, fmt.Errorf("property %s is null", name)
	}
	return 0, fmt.Errorf("property %s is not numeric: %s", name, v.Raw)
}

func unescape(path string) string {
	return strings.ReplaceAll(path, `\.`, ".")
}

// wholeSeconds truncates toward zero.
func wholeSeconds(d time.Duration) int {
	return int(d / time.Second)
}

// decodeWorkItems maps a work item result table. The first undecodable row
// fails the whole query.
func decodeWorkItems(table *kustoTable) ([]provider.WorkItem, error) {
	items := make([]provider.WorkItem, 0, len(table.Rows))
	for i, row := range newRowReaders(table) {
		item, err := decodeWorkItem(row)
		if err != nil {
			return nil, fmt.Errorf("%w: work item row %d: %w", provider.ErrDecode, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeWorkItem(row *rowReader) (provider.WorkItem, error) {
	properties := row.JSON("Properties")
	queued := row.Time("Queued")
	started := row.Time("Started")
	finished := row.Time("Finished")

	item := provider.WorkItem{
		FriendlyName: row.String("FriendlyName"),
		MachineName:  row.String("MachineName"),
		ExitCode:     row.Int("ExitCode"),
		ConsoleURI:   row.String("ConsoleUri"),
		JobID:        row.Int64("JobId"),
		JobName:      row.String("JobName"),
		QueueName:    row.String("QueueName"),
		WorkItemID:   row.Int64("WorkItemId"),
		Status:       row.String("Status"),
		Finished:     finished,
	}
	if err := row.Err(); err != nil {
		return provider.WorkItem{}, err
	}

	corr, err := parseCorrelation(properties)
	if err != nil {
		return provider.WorkItem{}, fmt.Errorf("job %d work item %d: %w", item.JobID, item.WorkItemID, err)
	}

	item.AzdoBuildID = corr.BuildID
	item.AzdoPhaseName = corr.PhaseName
	item.AzdoAttempt = corr.Attempt
	item.ExecutionTime = wholeSeconds(finished.Sub(started))
	item.QueuedTime = wholeSeconds(started.Sub(queued))
	return item, nil
}

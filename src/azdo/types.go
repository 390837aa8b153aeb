package azdo

import "time"

// Wire shapes of the build service REST API. Only the fields the adapter
// maps are declared.

// listEnvelope is the {count, value} wrapper every list endpoint returns.
// Value is a pointer so a body without it can be told apart from an empty list.
type listEnvelope[T any] struct {
	Count int  `json:"count"`
	Value *[]T `json:"value"`
}

type buildDefinition struct {
	Name string `json:"name"`
}

type build struct {
	ID           int              `json:"id"`
	BuildNumber  string           `json:"buildNumber"`
	Status       string           `json:"status"`
	Result       *string          `json:"result"`
	SourceBranch string           `json:"sourceBranch"`
	Definition   *buildDefinition `json:"definition"`
	FinishTime   *time.Time       `json:"finishTime"`
}

type testRun struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type testResult struct {
	TestCaseTitle string  `json:"testCaseTitle"`
	Outcome       string  `json:"outcome"`
	ErrorMessage  *string `json:"errorMessage"`
	StackTrace    *string `json:"stackTrace"`
}

type timeline struct {
	Records []timelineRecord `json:"records"`
}

type timelineIssue struct {
	Type     string  `json:"type"`
	Message  string  `json:"message"`
	Category *string `json:"category"`
}

type logReference struct {
	URL *string `json:"url"`
}

type timelineRecord struct {
	ID           string          `json:"id"`
	ParentID     *string         `json:"parentId"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Order        int             `json:"order"`
	State        *string         `json:"state"`
	Result       *string         `json:"result"`
	ErrorCount   int             `json:"errorCount"`
	WarningCount int             `json:"warningCount"`
	StartTime    *time.Time      `json:"startTime"`
	FinishTime   *time.Time      `json:"finishTime"`
	WorkerName   *string         `json:"workerName"`
	Issues       []timelineIssue `json:"issues"`
	Log          *logReference   `json:"log"`
}

type artifactResource struct {
	DownloadURL *string `json:"downloadUrl"`
	Type        *string `json:"type"`
}

type artifact struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	Resource *artifactResource `json:"resource"`
}

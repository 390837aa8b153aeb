package provider

import "time"

// Build is one execution of a pipeline definition in the build service.
type Build struct {
	ID             int        `json:"id"`
	BuildNumber    string     `json:"buildNumber"`
	Status         string     `json:"status"`
	Result         *string    `json:"result,omitempty"`
	URI            string     `json:"uri"`
	SourceBranch   string     `json:"sourceBranch"`
	DefinitionName string     `json:"definitionName"`
	FinishTime     *time.Time `json:"finishTime,omitempty"`
}

// TimelineIssue is an error or warning attached to a timeline record.
type TimelineIssue struct {
	Type     string  `json:"type"`
	Message  string  `json:"message"`
	Category *string `json:"category,omitempty"`
}

// TimelineRecord is one stage, phase, job or task of a build.
type TimelineRecord struct {
	ID           string          `json:"id"`
	ParentID     *string         `json:"parentId,omitempty"`
	Name         string          `json:"name"`
	RecordType   string          `json:"recordType"`
	Order        int             `json:"order"`
	State        *string         `json:"state,omitempty"`
	Result       *string         `json:"result,omitempty"`
	ErrorCount   int             `json:"errorCount"`
	WarningCount int             `json:"warningCount"`
	StartTime    *time.Time      `json:"startTime,omitempty"`
	FinishTime   *time.Time      `json:"finishTime,omitempty"`
	Issues       []TimelineIssue `json:"issues"`
	WorkerName   *string         `json:"workerName,omitempty"`
	LogURL       *string         `json:"logUrl,omitempty"`
}

// Artifact is a named output published by a build.
type Artifact struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	DownloadURL  *string `json:"downloadUrl,omitempty"`
	ResourceType *string `json:"resourceType,omitempty"`
}

// TestFailure is a failed test result annotated with the run it came from.
type TestFailure struct {
	TestCaseTitle string  `json:"testCaseTitle"`
	Outcome       string  `json:"outcome"`
	ErrorMessage  *string `json:"errorMessage,omitempty"`
	StackTrace    *string `json:"stackTrace,omitempty"`
	TestRunID     int     `json:"testRunId"`
	TestRunName   string  `json:"testRunName"`
}

// WorkItem is one unit of distributed test execution, correlated back to
// the build that queued it.
type WorkItem struct {
	FriendlyName  string    `json:"friendlyName"`
	ExecutionTime int       `json:"executionTime"`
	QueuedTime    int       `json:"queuedTime"`
	AzdoBuildID   int       `json:"azdoBuildId"`
	AzdoPhaseName string    `json:"azdoPhaseName"`
	AzdoAttempt   int       `json:"azdoAttempt"`
	MachineName   string    `json:"machineName"`
	ExitCode      int       `json:"exitCode"`
	ConsoleURI    string    `json:"consoleUri"`
	JobID         int64     `json:"jobId"`
	JobName       string    `json:"jobName"`
	QueueName     string    `json:"queueName"`
	Finished      time.Time `json:"finished"`
	WorkItemID    int64     `json:"workItemId"`
	Status        string    `json:"status"`
}

// Failed reports whether the work item's process exited non-zero.
func (w WorkItem) Failed() bool {
	return w.ExitCode != 0
}

// WorkItemConsole is the raw console output of a work item.
type WorkItemConsole struct {
	JobID      int64  `json:"jobId"`
	WorkItemID int64  `json:"workItemId"`
	Text       string `json:"text"`
}

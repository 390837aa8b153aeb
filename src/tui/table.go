package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pipeline-agent/src/provider"
	"pipeline-agent/src/query"
)

// Column widths, in display columns.
const (
	nameWidth    = 48
	branchWidth  = 32
	messageWidth = 72
)

// Renderer turns query results into terminal tables and trees.
type Renderer struct {
	styles *StyleConfig
}

// NewRenderer creates a Renderer using styles, or the defaults when nil.
func NewRenderer(styles *StyleConfig) *Renderer {
	if styles == nil {
		styles = DefaultStyles()
	}
	return &Renderer{styles: styles}
}

// renderTable draws rows under headers. resultCol, when not negative, is
// colored with ResultStyle using the matching entry of results.
func (r *Renderer) renderTable(headers []string, rows [][]string, resultCol int, results []*string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(r.styles.BorderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.HeaderStyle()
			}
			if col == resultCol && row >= 0 && row < len(results) {
				return r.styles.ResultStyle(results[row]).Padding(0, 1)
			}
			return r.styles.CellStyle()
		})
	return t.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Builds renders a build listing.
func (r *Renderer) Builds(builds []provider.Build) string {
	if len(builds) == 0 {
		return r.styles.HelpStyle().Render("No builds found.")
	}

	rows := make([][]string, len(builds))
	results := make([]*string, len(builds))
	for i, b := range builds {
		rows[i] = []string{
			strconv.Itoa(b.ID),
			b.BuildNumber,
			Truncate(b.DefinitionName, nameWidth),
			Truncate(ShortBranch(b.SourceBranch), branchWidth),
			b.Status,
			Deref(b.Result, "-"),
			formatTime(b.FinishTime),
		}
		results[i] = b.Result
	}
	return r.renderTable([]string{"ID", "NUMBER", "DEFINITION", "BRANCH", "STATUS", "RESULT", "FINISHED"}, rows, 5, results)
}

// TestFailures renders failed test results with the first line of their
// error message.
func (r *Renderer) TestFailures(failures []provider.TestFailure) string {
	if len(failures) == 0 {
		return r.styles.HelpStyle().Render("No failed tests.")
	}

	rows := make([][]string, len(failures))
	for i, f := range failures {
		rows[i] = []string{
			Truncate(f.TestRunName, nameWidth/2),
			Truncate(f.TestCaseTitle, nameWidth),
			Truncate(FirstLine(Deref(f.ErrorMessage, "")), messageWidth),
		}
	}
	return r.renderTable([]string{"RUN", "TEST", "ERROR"}, rows, -1, nil)
}

// Artifacts renders an artifact listing.
func (r *Renderer) Artifacts(artifacts []provider.Artifact) string {
	if len(artifacts) == 0 {
		return r.styles.HelpStyle().Render("No artifacts published.")
	}

	rows := make([][]string, len(artifacts))
	for i, a := range artifacts {
		rows[i] = []string{
			strconv.Itoa(a.ID),
			Truncate(a.Name, nameWidth),
			Deref(a.ResourceType, "-"),
		}
	}
	return r.renderTable([]string{"ID", "NAME", "TYPE"}, rows, -1, nil)
}

// Jobs renders job records in the order given.
func (r *Renderer) Jobs(jobs []provider.TimelineRecord) string {
	if len(jobs) == 0 {
		return r.styles.HelpStyle().Render("No jobs found.")
	}

	rows := make([][]string, len(jobs))
	results := make([]*string, len(jobs))
	for i, j := range jobs {
		rows[i] = []string{
			Truncate(j.Name, nameWidth),
			Deref(j.State, "-"),
			Deref(j.Result, "-"),
			strconv.Itoa(j.ErrorCount),
			Truncate(Deref(j.WorkerName, "-"), nameWidth/2),
		}
		results[i] = j.Result
	}
	return r.renderTable([]string{"JOB", "STATE", "RESULT", "ERRORS", "WORKER"}, rows, 2, results)
}

// WorkItems renders a work item listing.
func (r *Renderer) WorkItems(items []provider.WorkItem) string {
	if len(items) == 0 {
		return r.styles.HelpStyle().Render("No work items found.")
	}

	failed := "failed"
	succeeded := "succeeded"
	rows := make([][]string, len(items))
	results := make([]*string, len(items))
	for i, w := range items {
		rows[i] = []string{
			strconv.FormatInt(w.JobID, 10),
			strconv.FormatInt(w.WorkItemID, 10),
			Truncate(w.FriendlyName, nameWidth),
			Truncate(w.AzdoPhaseName, nameWidth/2),
			strconv.Itoa(w.ExitCode),
			fmt.Sprintf("%ds", w.ExecutionTime),
			Truncate(w.QueueName, nameWidth/2),
		}
		results[i] = &succeeded
		if w.Failed() {
			results[i] = &failed
		}
	}
	return r.renderTable([]string{"JOB", "WORK ITEM", "NAME", "PHASE", "EXIT", "DURATION", "QUEUE"}, rows, 4, results)
}

// FailureSummary renders grouped failures, largest group first.
func (r *Renderer) FailureSummary(summary *query.FailureSummary) string {
	title := r.styles.TitleStyle().Render(fmt.Sprintf("Build %d: %d failed tests, %d error issues",
		summary.BuildID, summary.TestFailures, summary.ErrorIssues))
	if len(summary.Groups) == 0 {
		return title + "\n" + r.styles.HelpStyle().Render("No failures recorded.")
	}

	rows := make([][]string, len(summary.Groups))
	for i, g := range summary.Groups {
		subject := ""
		if len(g.Subjects) > 0 {
			subject = g.Subjects[0]
			if len(g.Subjects) > 1 {
				subject = fmt.Sprintf("%s (+%d)", subject, len(g.Subjects)-1)
			}
		}
		rows[i] = []string{
			strconv.Itoa(g.Count),
			g.Source,
			Truncate(g.Signature, messageWidth),
			Truncate(subject, nameWidth),
		}
	}
	return title + "\n" + r.renderTable([]string{"COUNT", "SOURCE", "SIGNATURE", "SEEN IN"}, rows, -1, nil)
}

// PullRequestReport renders each build followed by its work items.
func (r *Renderer) PullRequestReport(report *query.PullRequestReport) string {
	out := r.styles.TitleStyle().Render(fmt.Sprintf("%s #%d (%s)", report.Repository, report.PullRequest, report.MergeRef)) + "\n"
	if len(report.Builds) == 0 {
		out += r.styles.HelpStyle().Render("No builds found.") + "\n"
	}
	for _, b := range report.Builds {
		out += "\n" + r.Builds([]provider.Build{b.Build}) + "\n"
		out += r.WorkItems(b.WorkItems) + "\n"
	}
	if len(report.Uncorrelated) > 0 {
		out += "\n" + r.styles.TitleStyle().Render("Work items from other builds") + "\n"
		out += r.WorkItems(report.Uncorrelated) + "\n"
	}
	return out
}

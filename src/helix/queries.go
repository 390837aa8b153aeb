package helix

import (
	"fmt"
	"strings"

	"pipeline-agent/src/provider"
)

// workItemColumns is the projection every work item query ends with. The
// property blob and raw timestamps are decoded client-side.
const workItemColumns = "FriendlyName, Properties, Queued, Started, Finished, MachineName, ExitCode, ConsoleUri, JobId, JobName, QueueName, WorkItemId, Status"

const failedOnly = "| where ExitCode != 0"

// kqlString quotes s as a KQL string literal.
func kqlString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

func workItemsForBuildQuery(repo provider.RepositoryRef, buildID int, includeAll bool) string {
	lines := []string{
		"Jobs",
		"| where Repository == " + kqlString(repo.String()),
		fmt.Sprintf(`| where toint(parse_json(Properties)["BuildId"]) == %d`, buildID),
		"| project-away Started, Finished",
		"| join kind=inner WorkItems on JobId",
	}
	if !includeAll {
		lines = append(lines, failedOnly)
	}
	lines = append(lines, "| project "+workItemColumns)
	return strings.Join(lines, "\n")
}

func workItemsForPullRequestQuery(repo provider.RepositoryRef, prNumber int, includeAll bool) string {
	lines := []string{
		"Jobs",
		"| where Repository == " + kqlString(repo.String()),
		"| where Branch == " + kqlString(provider.MergeRef(prNumber)),
		"| project-away Started, Finished",
		"| join kind=inner WorkItems on JobId",
	}
	if !includeAll {
		lines = append(lines, failedOnly)
	}
	lines = append(lines, "| project "+workItemColumns)
	return strings.Join(lines, "\n")
}

func workItemForIdentityQuery(jobID, workItemID int64) string {
	return strings.Join([]string{
		"WorkItems",
		fmt.Sprintf("| where JobId == %d", jobID),
		fmt.Sprintf("| where WorkItemId == %d", workItemID),
		"| join kind=inner Jobs on JobId",
		"| project " + workItemColumns,
	}, "\n")
}

package provider

import "sort"

// RecordTypeJob is the record type the timeline helpers treat as a job.
const RecordTypeJob = "Job"

// Timeline is the flat set of records for one build. The tree shape is
// derived on demand through Children.
type Timeline struct {
	Records []TimelineRecord `json:"records"`
}

// Issues returns every record's issues, in record order.
func (t *Timeline) Issues() []TimelineIssue {
	issues := []TimelineIssue{}
	for _, r := range t.Records {
		issues = append(issues, r.Issues...)
	}
	return issues
}

// JobNames returns the distinct names of Job records in first-seen order.
func (t *Timeline) JobNames() []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, r := range t.Records {
		if r.RecordType != RecordTypeJob || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	return names
}

// Jobs returns all Job records regardless of depth, sorted by Order.
func (t *Timeline) Jobs() []TimelineRecord {
	jobs := []TimelineRecord{}
	for _, r := range t.Records {
		if r.RecordType == RecordTypeJob {
			jobs = append(jobs, r)
		}
	}
	sortByOrder(jobs)
	return jobs
}

// Children returns the direct children of parentID sorted by Order, or the
// top-level records when parentID is nil.
//
// A record whose parent id is not present in the timeline is never returned
// here; it is only visible through Records.
func (t *Timeline) Children(parentID *string) []TimelineRecord {
	children := []TimelineRecord{}
	for _, r := range t.Records {
		if sameParent(r.ParentID, parentID) {
			children = append(children, r)
		}
	}
	sortByOrder(children)
	return children
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sortByOrder must stay stable: equal orders keep backend order.
func sortByOrder(records []TimelineRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Order < records[j].Order
	})
}

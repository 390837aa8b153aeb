package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/tree"

	"pipeline-agent/src/provider"
)

// Timeline renders the timeline as a tree of stages, jobs and tasks.
// Records whose parent is not part of the timeline are not drawn as part of
// the tree; they are listed after it under a missing-parent heading. A record
// is drawn at most once, so a cycle in the parent links cannot recurse forever.
func (r *Renderer) Timeline(timeline *provider.Timeline) string {
	if timeline == nil || len(timeline.Records) == 0 {
		return r.styles.HelpStyle().Render("Timeline is empty.")
	}

	visited := make(map[string]bool, len(timeline.Records))
	root := tree.New().Enumerator(tree.RoundedEnumerator)
	for _, rec := range timeline.Children(nil) {
		if node := r.timelineNode(timeline, rec, visited); node != nil {
			root.Child(node)
		}
	}

	var detached []*tree.Tree
	for _, rec := range timeline.Records {
		if visited[rec.ID] {
			continue
		}
		if node := r.timelineNode(timeline, rec, visited); node != nil {
			detached = append(detached, node)
		}
	}
	out := root.String()
	if len(detached) > 0 {
		orphans := tree.New().Enumerator(tree.RoundedEnumerator)
		for _, node := range detached {
			orphans.Child(node)
		}
		heading := r.styles.HelpStyle().Render(fmt.Sprintf("%d record(s) with a missing parent:", len(detached)))
		if out != "" {
			out += "\n\n"
		}
		out += heading + "\n" + orphans.String()
	}
	return out
}

func (r *Renderer) timelineNode(timeline *provider.Timeline, rec provider.TimelineRecord, visited map[string]bool) *tree.Tree {
	if visited[rec.ID] {
		return nil
	}
	visited[rec.ID] = true

	node := tree.Root(r.recordLabel(rec))
	id := rec.ID
	for _, child := range timeline.Children(&id) {
		if c := r.timelineNode(timeline, child, visited); c != nil {
			node.Child(c)
		}
	}
	return node
}

func (r *Renderer) recordLabel(rec provider.TimelineRecord) string {
	label := fmt.Sprintf("[%s] %s", rec.RecordType, Truncate(rec.Name, nameWidth))
	if rec.Result != nil {
		label += " " + r.styles.ResultStyle(rec.Result).Render(*rec.Result)
	} else if rec.State != nil {
		label += " " + r.styles.ResultStyle(nil).Render(*rec.State)
	}
	if rec.ErrorCount > 0 {
		label += fmt.Sprintf(" (%d errors)", rec.ErrorCount)
	}
	return label
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

// OutputOptions controls how results are printed.
type OutputOptions struct {
	JSON bool
}

// AddOutputArg registers --json on cmd.
func AddOutputArg(cmd *cobra.Command, oo *OutputOptions) {
	cmd.Flags().BoolVar(&oo.JSON, "json", false,
		"Output as JSON.")
}

// HandleError prints err as a JSON object when --json is set, so callers
// parsing stdout always get JSON.
func (o *OutputOptions) HandleError(w io.Writer, err error) error {
	if o.JSON && err != nil {
		out := map[string]string{
			"error": err.Error(),
		}
		if notice, ok := goals.Notice(err); ok {
			out["notice"] = notice
		}
		b, jerr := json.Marshal(out)
		if jerr != nil {
			return jerr
		}
		_, _ = fmt.Fprintln(w, string(b))
	}
	return err
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	activeColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
	backlogColor   = color.New(color.FgBlue, color.Bold).SprintFunc()
	completedColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	dimColor       = color.New(color.Faint).SprintFunc()
)

func bucketHeading(st goals.Status, n int) string {
	switch st {
	case goals.StatusActive:
		return activeColor(fmt.Sprintf("ACTIVE (%d/%d)", n, goals.FocusCap))
	case goals.StatusBacklog:
		return backlogColor(fmt.Sprintf("BACKLOG (%d)", n))
	default:
		return completedColor(fmt.Sprintf("COMPLETED (%d)", n))
	}
}

func statusMark(g goals.Goal) string {
	switch {
	case g.IsComplete():
		return completedColor("✓")
	case g.IsActive():
		return activeColor("●")
	default:
		return "○"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printBuckets writes one table per bucket, in board order.
func printBuckets(w io.Writer, snap goals.Snapshot, only []goals.Status) {
	for i, st := range only {
		bucket := snap.Bucket(st)
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, bucketHeading(st, len(bucket)))
		if len(bucket) == 0 {
			fmt.Fprintln(w, dimColor("  (none)"))
			continue
		}

		table := uitable.New()
		table.MaxColWidth = 48
		table.AddRow("", "#", "ID", "TITLE", "CATEGORY", "PROGRESS", "MILESTONES")
		for n, g := range bucket {
			ms := ""
			if len(g.Milestones) > 0 {
				ms = fmt.Sprintf("%d/%d", g.MilestonesDone(), len(g.Milestones))
			}
			table.AddRow(statusMark(g), n+1, shortID(g.ID), g.Title, string(g.Category), fmt.Sprintf("%d%%", g.Progress), ms)
		}
		fmt.Fprintln(w, table)
	}
}

// printGoal writes the full detail of one goal.
func printGoal(w io.Writer, g goals.Goal) {
	fmt.Fprintf(w, "%s %s  %s\n", statusMark(g), g.Title, dimColor(g.ID))

	table := uitable.New()
	table.AddRow("Status:", string(g.Status))
	table.AddRow("Category:", string(g.Category))
	table.AddRow("Progress:", fmt.Sprintf("%d%%", g.Progress))
	if g.TargetDate != nil {
		table.AddRow("Target:", g.TargetDate.Format(dateLayout))
	}
	if g.CompletedAt != nil {
		table.AddRow("Completed:", g.CompletedAt.Format(dateLayout))
	}
	if len(g.LinkedValueIDs) > 0 {
		table.AddRow("Values:", fmt.Sprint(g.LinkedValueIDs))
	}
	fmt.Fprintln(w, table)

	if len(g.Milestones) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Milestones (%d/%d):\n", g.MilestonesDone(), len(g.Milestones))
		for i, ms := range g.Milestones {
			box := "[ ]"
			if ms.IsComplete() {
				box = "[x]"
			}
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, box, ms.Title)
		}
	}
	if g.Notes != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, g.Notes)
	}
}

// Package summary renders the end-of-batch per-protein, per-step completion
// report: one row per protein, one column per step, status and failure
// message pulled straight from the durable state store. Uses tablewriter
// (no borders, tab padding) for the table and fatih/color for failed-row
// highlighting.
package summary

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/state"
	"github.com/rschaeff/dpamengine/pkg/stepreg"
)

// Row is one protein's status across every scheduled step, for callers that
// want the data without the rendering.
type Row struct {
	ProteinID string
	Statuses  map[protein.StepID]state.StepStatus
	// FirstFailure is the earliest step (in fixed order) this protein failed
	// or was skipped at, or zero if no step is recorded failed or skipped
	// (including a protein with no steps attempted yet).
	FirstFailure protein.StepID
	// FailureMessage is the recorded error for FirstFailure, if any.
	FailureMessage string
}

// Build walks every protein enrolled in store and assembles its per-step
// status row, in the fixed step order stepreg.Ordered() defines.
func Build(store *state.Store) []Row {
	steps := stepreg.Ordered()
	ids := store.ProteinIDs()
	rows := make([]Row, 0, len(ids))

	for _, id := range ids {
		row := Row{ProteinID: id, Statuses: make(map[protein.StepID]state.StepStatus, len(steps))}
		rec, ok := store.ProteinRecord(id)
		for _, desc := range steps {
			if !ok {
				row.Statuses[desc.ID] = state.StatusPending
				continue
			}
			sr, ok := rec.Steps[desc.ID]
			if !ok {
				row.Statuses[desc.ID] = state.StatusPending
				continue
			}
			row.Statuses[desc.ID] = sr.Status
			if row.FirstFailure == 0 && (sr.Status == state.StatusFailed || sr.Status == state.StatusSkipped) {
				row.FirstFailure = desc.ID
				row.FailureMessage = sr.Error
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Write renders rows as a borderless table to w, one column per step plus a
// trailing overall-status column, with failed or skipped rows colored red.
func Write(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no proteins enrolled")
		return
	}

	steps := stepreg.Ordered()
	headers := make([]string, 0, len(steps)+2)
	headers = append(headers, "protein")
	for _, desc := range steps {
		headers = append(headers, desc.Name)
	}
	headers = append(headers, "overall")

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	red := color.New(color.FgRed).SprintFunc()

	for _, row := range rows {
		record := make([]string, 0, len(steps)+2)
		record = append(record, row.ProteinID)
		for _, desc := range steps {
			record = append(record, string(row.Statuses[desc.ID]))
		}
		if row.FirstFailure != 0 {
			overall := fmt.Sprintf("failed at %d: %s", row.FirstFailure, row.FailureMessage)
			record = append(record, red(overall))
		} else {
			record = append(record, "complete")
		}
		table.Append(record)
	}

	fmt.Fprintln(w)
	table.Render()
	fmt.Fprintln(w)
}

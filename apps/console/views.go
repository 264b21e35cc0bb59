package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/services/backend"
)

func renderWorkload(out io.Writer, snap roster.Snapshot) {
	if len(snap.Workload) == 0 {
		fmt.Fprintln(out, "No teachers on file. Upload a master timetable first.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tSUB WORKLOAD\tADMIN")
	for _, entry := range snap.Workload {
		admin := ""
		if entry.IsAdmin {
			admin = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", entry.Name, entry.Email, entry.SubWorkload, admin)
	}
	w.Flush()
}

func renderHistory(out io.Writer, snap roster.Snapshot) {
	if snap.HistoryCount() == 0 {
		fmt.Fprintln(out, "No substitution history yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tABSENT\tSTATUS\tCLASS\tSUBJECT\tSUBSTITUTE")
	for _, rec := range snap.RecentHistory() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Date, rec.Time, rec.AbsentTeacher, rec.Status, rec.ClassName, rec.Subject, rec.SubstituteTeacher)
	}
	w.Flush()
	fmt.Fprintf(out, "Showing %d of %d records.\n", len(snap.RecentHistory()), snap.HistoryCount())
}

func renderResult(out io.Writer, result *absence.SubstitutionResult) {
	fmt.Fprintln(out, result.Message)
	if len(result.Substitutions) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tCLASS\tSUBJECT\tSUBSTITUTE")
	for _, a := range result.Substitutions {
		substitute := a.Substitute
		if !a.Resolved() {
			// unresolved periods are a valid outcome, just flagged for follow-up
			substitute = "(none found - arrange cover manually)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Period, a.Class, a.Subject, substitute)
	}
	w.Flush()
}

// renderError turns a workflow failure into the one-line human message the
// console prints; nothing ever escapes to a crash.
func renderError(err error) string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		msg := "Invalid input:"
		for _, fld := range vErr.Fields {
			msg += fmt.Sprintf("\n  %s: %s", fld.Field, fld.Error)
		}
		return msg
	}

	var apiErr *backend.APIError
	var transportErr *backend.TransportError
	if errors.Is(err, backend.ErrUnauthorized) {
		return "Your session has ended. Please log in again."
	}
	if errors.As(err, &apiErr) {
		return "The server rejected the request: " + apiErr.Detail
	}
	if errors.As(err, &transportErr) {
		return "Could not reach the backend. Check the connection and retry."
	}
	return err.Error()
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/services/backend"
)

func Test_renderResult(t *testing.T) {
	result := &absence.SubstitutionResult{
		Message: "Processed 3 periods for J. Smith. Notifications attempted.",
		Substitutions: []absence.Assignment{
			{Period: "08:30-09:10", Class: "2A", Subject: "English", Substitute: "A. Patel"},
			{Period: "09:10-09:50", Class: "3B", Subject: "Maths", Substitute: absence.SubstituteNotFound},
			{Period: "10:10-10:50", Class: "5A", Subject: "English", Substitute: "B. Okoro"},
		},
	}

	out := new(bytes.Buffer)
	renderResult(out, result)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	// message + header + one row per substitution, resolved or not
	assert.Len(t, lines, 2+len(result.Substitutions))
	assert.Contains(t, out.String(), "arrange cover manually")
	assert.NotContains(t, out.String(), "error")
}

func Test_renderHistory_truncates(t *testing.T) {
	history := make([]roster.HistoryRecord, 33)
	for i := range history {
		history[i] = roster.HistoryRecord{Date: "2025-03-01", AbsentTeacher: "J. Smith"}
	}
	out := new(bytes.Buffer)
	renderHistory(out, roster.Snapshot{History: history})
	assert.Contains(t, out.String(), "Showing 20 of 33 records.")
}

func Test_renderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", core.NewValidationError(nil, core.FieldError{Field: "reason", Error: "this field is required"}), "reason: this field is required"},
		{"unauthorized", backend.ErrUnauthorized, "Please log in again"},
		{"server rejected", &backend.APIError{StatusCode: 404, Detail: "Teacher 'X' not found."}, "Teacher 'X' not found."},
		{"transport", &backend.TransportError{Err: assert.AnError}, "Could not reach the backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, renderError(tt.err), tt.want)
		})
	}
}

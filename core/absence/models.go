package absence

// Teacher absence statuses accepted by the backend.
const (
	StatusAbsent = "Absent"
	StatusBusy   = "Busy"
)

// SubstituteNotFound is the sentinel the backend uses for a period it could
// not cover. It is a valid, reportable outcome, not an error: a report whose
// periods are all unresolved is still a successful report.
const SubstituteNotFound = "Not Found"

type (
	// Report is the absence report form. A reason is required if and only if
	// the status is Busy; for Absent it is omitted from the body entirely.
	Report struct {
		TeacherName string `json:"teacher_name" validate:"required"`
		AbsenceDate string `json:"absence_date" validate:"required,dateonly"`
		Status      string `json:"status" validate:"required,oneof=Absent Busy"`
		Reason      string `json:"reason,omitempty" validate:"required_if=Status Busy"`
	}

	// Assignment is one per-period substitution outcome.
	Assignment struct {
		Period     string `json:"period"`
		Class      string `json:"class"`
		Subject    string `json:"subject"`
		Substitute string `json:"substitute"`
	}

	// SubstitutionResult is the backend's answer to a report: an overall
	// message plus the per-period assignments. Substitutions may be empty
	// when the teacher had no scheduled periods that day.
	SubstitutionResult struct {
		Message       string       `json:"message"`
		Substitutions []Assignment `json:"substitutions"`
	}
)

// Resolved reports whether a substitute was actually assigned for the period.
func (a Assignment) Resolved() bool {
	return a.Substitute != "" && a.Substitute != SubstituteNotFound
}

package roster

import "time"

// RecentHistoryLimit caps how many history rows the views render. The full
// sequence is always retained so record counts stay accurate.
const RecentHistoryLimit = 20

type (
	// WorkloadEntry is one teacher's current substitution workload, produced
	// wholesale by the backend and keyed by email.
	WorkloadEntry struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		SubWorkload int    `json:"sub_workload"`
		IsAdmin     bool   `json:"is_admin"`
	}

	// HistoryRecord is one past substitution, in server-defined order
	// (assumed reverse-chronological).
	HistoryRecord struct {
		Date              string `json:"date"`
		Time              string `json:"time"`
		AbsentTeacher     string `json:"absent_teacher"`
		Status            string `json:"status"`
		ClassName         string `json:"class_name"`
		Subject           string `json:"subject"`
		SubstituteTeacher string `json:"substitute_teacher"`
	}

	// Snapshot is the most recently committed pair of collections. It is
	// replaced wholesale on refresh, never mutated entry by entry.
	Snapshot struct {
		Workload  []WorkloadEntry
		History   []HistoryRecord
		FetchedAt time.Time
	}
)

// TeacherNames returns the names present in the workload, in server order.
// These are the only valid choices for the absence report form.
func (s Snapshot) TeacherNames() []string {
	names := make([]string, 0, len(s.Workload))
	for _, entry := range s.Workload {
		names = append(names, entry.Name)
	}
	return names
}

// RecentHistory returns the display prefix of the history sequence.
func (s Snapshot) RecentHistory() []HistoryRecord {
	if len(s.History) <= RecentHistoryLimit {
		return s.History
	}
	return s.History[:RecentHistoryLimit]
}

func (s Snapshot) HistoryCount() int { return len(s.History) }

func (s Snapshot) Empty() bool { return len(s.Workload) == 0 && len(s.History) == 0 }

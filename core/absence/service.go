package absence

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core"
)

const reportPath = "/absence/report-day"

var ErrUnknownTeacher = errors.New("teacher is not in the current workload")

// State tracks the report workflow: Editing -> Submitting -> Resulted|Failed
// -> Editing. Failures never disturb a previously obtained result.
type State int

const (
	Editing State = iota
	Submitting
	Resulted
	Failed
)

type (
	// Gateway is the slice of the API client the workflow needs.
	Gateway interface {
		PostJSON(ctx context.Context, path string, body, v interface{}) error
	}

	// Roster supplies the teacher-name choices and the post-submit refresh.
	// The workload snapshot is the only source of valid teacher names.
	Roster interface {
		TeacherNames() []string
		Refresh(ctx context.Context) error
	}

	// Service runs the absence report workflow.
	Service struct {
		gw     Gateway
		roster Roster
		log    core.Logger

		mu     sync.Mutex
		state  State
		result *SubstitutionResult
	}
)

func NewService(gw Gateway, roster Roster, log core.Logger) *Service {
	return &Service{gw: gw, roster: roster, log: log}
}

// Validate runs the local checks that must pass before any network call:
// mandatory teacher and date, reason iff Busy, and teacher membership in the
// current workload snapshot. Returns a *core.ValidationError on rejection.
func (svc *Service) Validate(rpt Report) error {
	if err := core.Validate.Struct(rpt); err != nil {
		return core.TranslateError(err)
	}
	for _, name := range svc.roster.TeacherNames() {
		if name == rpt.TeacherName {
			return nil
		}
	}
	return core.NewValidationError(ErrUnknownTeacher,
		core.FieldError{Field: "teacher_name", Error: ErrUnknownTeacher.Error()})
}

// Submit validates and sends the report. On success the result is stored, a
// roster refresh is triggered (workload counts and history both change) and
// the workflow returns to Editing for the next report. On failure any prior
// result is left untouched.
func (svc *Service) Submit(ctx context.Context, rpt Report) (*SubstitutionResult, error) {
	rpt.TeacherName = core.CleanString(rpt.TeacherName)
	rpt.Reason = core.CleanString(rpt.Reason)
	if rpt.Status == StatusAbsent {
		// reason is omitted, not sent empty, when the teacher is absent
		rpt.Reason = ""
	}
	if err := svc.Validate(rpt); err != nil {
		return nil, err
	}

	svc.setState(Submitting)
	var result SubstitutionResult
	if err := svc.gw.PostJSON(ctx, reportPath, rpt, &result); err != nil {
		svc.setState(Failed)
		return nil, err
	}

	svc.mu.Lock()
	svc.state = Resulted
	svc.result = &result
	svc.mu.Unlock()

	if err := svc.roster.Refresh(ctx); err != nil {
		svc.log.Warn("refresh after absence report failed", err)
	}
	return &result, nil
}

// Result returns the last successful substitution result, if any.
func (svc *Service) Result() *SubstitutionResult {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.result
}

func (svc *Service) State() State {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state
}

func (svc *Service) setState(state State) {
	svc.mu.Lock()
	svc.state = state
	svc.mu.Unlock()
}

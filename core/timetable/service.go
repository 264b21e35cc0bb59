package timetable

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core"
)

const (
	uploadPath = "/timetable/upload-master"
	fileField  = "file"
)

var (
	// errors
	ErrNotCSV         = errors.New("only .csv files are accepted")
	ErrNoFileSelected = errors.New("no file selected")
	ErrNoSession      = errors.New("no active session; log in before uploading")
)

// State tracks the upload workflow: Idle -> FileSelected -> Uploading ->
// Succeeded|Failed. Success returns to Idle; failure keeps the selected file
// so the user can retry without re-choosing it.
type State int

const (
	Idle State = iota
	FileSelected
	Uploading
	Succeeded
	Failed
)

type (
	// UploadOutcome is the backend's report of a completed replace-upload.
	UploadOutcome struct {
		Message      string `json:"message"`
		TotalEntries int    `json:"total_entries"`
	}

	// Gateway is the slice of the API client the workflow needs.
	Gateway interface {
		PostMultipart(ctx context.Context, path, field, filename string, src io.Reader, v interface{}) error
	}

	// CredentialSource re-checks session presence just before sending; a long
	// idle period could have invalidated the session unnoticed.
	CredentialSource interface {
		Load() (string, error)
	}

	// Refresher is triggered after a successful replace: the workload view
	// depends on the timetable.
	Refresher interface {
		Refresh(ctx context.Context) error
	}

	// Service runs the destructive timetable replace-upload workflow. All
	// existing timetable data on the server is superseded by the upload.
	Service struct {
		gw          Gateway
		credentials CredentialSource
		refresher   Refresher
		log         core.Logger

		mu    sync.Mutex
		state State
		file  string
	}
)

func NewService(gw Gateway, credentials CredentialSource, refresher Refresher, log core.Logger) *Service {
	return &Service{gw: gw, credentials: credentials, refresher: refresher, log: log}
}

// Select validates the chosen file by filename suffix only. Anything but a
// .csv is rejected locally and the workflow stays where it was.
func (svc *Service) Select(path string) error {
	if !strings.HasSuffix(strings.ToLower(filepath.Base(path)), ".csv") {
		return core.NewValidationError(ErrNotCSV,
			core.FieldError{Field: fileField, Error: ErrNotCSV.Error()})
	}
	svc.mu.Lock()
	svc.state = FileSelected
	svc.file = path
	svc.mu.Unlock()
	return nil
}

// Selected returns the currently selected file path, if any.
func (svc *Service) Selected() (string, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.file, svc.file != ""
}

// Submit uploads the selected file as a single multipart POST. On success the
// selection is cleared and a refresh is triggered; on failure the selection is
// retained. Server rejections and transport failures surface as the gateway's
// distinct error types.
func (svc *Service) Submit(ctx context.Context) (UploadOutcome, error) {
	svc.mu.Lock()
	file := svc.file
	svc.mu.Unlock()
	if file == "" {
		return UploadOutcome{}, core.NewValidationError(ErrNoFileSelected,
			core.FieldError{Field: fileField, Error: ErrNoFileSelected.Error()})
	}
	if _, err := svc.credentials.Load(); err != nil {
		return UploadOutcome{}, ErrNoSession
	}

	src, err := os.Open(file)
	if err != nil {
		return UploadOutcome{}, errors.Wrap(err, "opening timetable file")
	}
	defer src.Close()

	svc.setState(Uploading)
	var outcome UploadOutcome
	if err = svc.gw.PostMultipart(ctx, uploadPath, fileField, filepath.Base(file), src, &outcome); err != nil {
		svc.setState(Failed) // file retained for retry
		return UploadOutcome{}, err
	}

	svc.mu.Lock()
	svc.state = Succeeded
	svc.file = ""
	svc.mu.Unlock()

	if err = svc.refresher.Refresh(ctx); err != nil {
		svc.log.Warn("refresh after timetable upload failed", err)
	}
	return outcome, nil
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

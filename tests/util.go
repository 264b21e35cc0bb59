package testutil

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/core/timetable"
)

// Backend is a scriptable stand-in for the substitution backend, speaking the
// same contract the production API does: form-encoded token exchange issuing
// HS256 bearer tokens, JSON reads, JSON report submission and multipart
// timetable upload, with `detail` error bodies and uniform 401s.
type Backend struct {
	Secret   string
	Email    string
	Password string

	mu       sync.Mutex
	Workload []roster.WorkloadEntry
	History  []roster.HistoryRecord

	// per-endpoint overrides; 0 means behave normally
	WorkloadStatus int
	HistoryStatus  int
	ReportStatus   int
	UploadStatus   int

	ReportResult  absence.SubstitutionResult
	UploadOutcome timetable.UploadOutcome

	// request bookkeeping for "no network call" style assertions
	TokenCalls    int
	WorkloadCalls int
	HistoryCalls  int
	ReportCalls   int
	UploadCalls   int

	LastReportBody map[string]interface{}
	LastUploadName string
	LastUploadData []byte
}

func NewBackend() *Backend {
	return &Backend{
		Secret:   "test-secret",
		Email:    "admin@school.edu",
		Password: "google-oauth-placeholder",
		Workload: []roster.WorkloadEntry{
			{Name: "J. Smith", Email: "jsmith@school.edu", SubWorkload: 2, IsAdmin: false},
			{Name: "A. Patel", Email: "apatel@school.edu", SubWorkload: 0, IsAdmin: true},
		},
		History: []roster.HistoryRecord{
			{Date: "2025-03-01", Time: "08:30-09:10", AbsentTeacher: "J. Smith", Status: "Absent",
				ClassName: "2A", Subject: "English", SubstituteTeacher: "A. Patel"},
		},
		ReportResult: absence.SubstitutionResult{
			Message: "Processed 1 periods for J. Smith. Notifications attempted.",
			Substitutions: []absence.Assignment{
				{Period: "08:30-09:10", Class: "2A", Subject: "English", Substitute: "A. Patel"},
			},
		},
		UploadOutcome: timetable.UploadOutcome{
			Message:      "Master timetable uploaded and replaced successfully for 2 teachers.",
			TotalEntries: 42,
		},
	}
}

// Start serves the stub over httptest for the duration of the test.
func (b *Backend) Start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) handler() http.Handler {
	e := echo.New()
	e.HideBanner = true

	e.POST("/token", b.token)

	authed := e.Group("", middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(b.Secret),
		SigningMethod: middleware.AlgorithmHS256,
		ErrorHandler: func(error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
		},
	}))
	authed.GET("/absence/workload", b.workload)
	authed.GET("/absence/history", b.history)
	authed.POST("/absence/report-day", b.report)
	authed.POST("/timetable/upload-master", b.upload)
	return e
}

// IssueToken signs a bearer token the stub will accept, for tests that want
// to seed a session store without going through the login call.
func (b *Backend) IssueToken(t *testing.T) string {
	t.Helper()
	claims := jwt.StandardClaims{
		Subject:   b.Email,
		ExpiresAt: time.Now().Add(30 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.Secret))
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}
	return token
}

func (b *Backend) token(c echo.Context) error {
	b.mu.Lock()
	b.TokenCalls++
	b.mu.Unlock()

	if c.FormValue("username") != b.Email || c.FormValue("password") != b.Password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Unauthorized email domain or user not found."})
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": b.IssueTokenQuiet(), "token_type": "bearer"})
}

// IssueTokenQuiet is the handler-side variant of IssueToken; signing with a
// static secret cannot realistically fail.
func (b *Backend) IssueTokenQuiet() string {
	claims := jwt.StandardClaims{
		Subject:   b.Email,
		ExpiresAt: time.Now().Add(30 * time.Minute).Unix(),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.Secret))
	return token
}

func (b *Backend) workload(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.WorkloadCalls++
	if b.WorkloadStatus != 0 {
		return c.JSON(b.WorkloadStatus, echo.Map{"detail": "workload unavailable"})
	}
	return c.JSON(http.StatusOK, b.Workload)
}

func (b *Backend) history(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.HistoryCalls++
	if b.HistoryStatus != 0 {
		return c.JSON(b.HistoryStatus, echo.Map{"detail": "history unavailable"})
	}
	return c.JSON(http.StatusOK, b.History)
}

func (b *Backend) report(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ReportCalls++
	if b.ReportStatus != 0 {
		return c.JSON(b.ReportStatus, echo.Map{"detail": "Teacher not found."})
	}

	data, err := ioutil.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	body := make(map[string]interface{})
	if err = json.Unmarshal(data, &body); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "invalid body"})
	}
	b.LastReportBody = body

	// the report grows the history and the chosen substitute's workload,
	// mirroring what the real backend persists
	b.History = append([]roster.HistoryRecord{{
		Date:          asString(body["absence_date"]),
		Time:          "08:30-09:10",
		AbsentTeacher: asString(body["teacher_name"]),
		Status:        asString(body["status"]),
	}}, b.History...)
	for i := range b.Workload {
		if b.Workload[i].Name != asString(body["teacher_name"]) {
			b.Workload[i].SubWorkload++
			break
		}
	}
	return c.JSON(http.StatusOK, b.ReportResult)
}

func (b *Backend) upload(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.UploadCalls++
	if b.UploadStatus != 0 {
		return c.JSON(b.UploadStatus, echo.Map{"detail": "Invalid file provided. Please upload a CSV file."})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "missing file field"})
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := ioutil.ReadAll(src)
	if err != nil {
		return err
	}
	b.LastUploadName = fh.Filename
	b.LastUploadData = data
	return c.JSON(http.StatusCreated, b.UploadOutcome)
}

// Calls returns a copy of the per-endpoint request counters.
func (b *Backend) Calls() (token, workload, history, report, upload int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.TokenCalls, b.WorkloadCalls, b.HistoryCalls, b.ReportCalls, b.UploadCalls
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

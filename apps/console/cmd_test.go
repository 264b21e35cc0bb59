package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/core/session"
	"github.com/subdesk/subdesk/core/timetable"
	"github.com/subdesk/subdesk/services/backend"
	sessionstore "github.com/subdesk/subdesk/storage/session"
	testutil "github.com/subdesk/subdesk/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Backend, *bytes.Buffer) {
	t.Helper()
	stub := testutil.NewBackend()
	srv := stub.Start(t)

	conf := &core.Config{
		AppName:        "Subdesk",
		BaseURL:        srv.URL,
		AdminEmail:     stub.Email,
		AdminSecret:    stub.Password,
		PollInterval:   time.Minute,
		RequestTimeout: 5 * time.Second,
		SessionFile:    filepath.Join(t.TempDir(), "session"),
	}
	log := testutil.Logger()

	store := sessionstore.NewFileStore(conf.SessionFile)
	client := backend.NewClient(conf, store, log)
	syncer := roster.NewSynchronizer(client, log)
	manager := session.NewManager(conf, store, client, syncer, log)
	client.OnUnauthorized(manager.HandleInvalidated)

	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:      conf,
		log:       log,
		manager:   manager,
		syncer:    syncer,
		absences:  absence.NewService(client, syncer, log),
		timetable: timetable.NewService(client, store, syncer, log),
		out:       out,
	}

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(stub.Password), nil }
	return cli, stub, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantOutput string
}

func run(t *testing.T, cli *commandLine, args ...string) error {
	t.Helper()
	return cli.run(append([]string{"subdesk"}, args...))
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no subcommand", args: nil, wantErr: errHelp, wantOutput: "Usage:"},
		{name: "unknown subcommand", args: []string{"lol"}, wantErr: errHelp, wantOutput: "Usage:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := run(t, cli, tt.args...)
			assert.Equal(t, tt.wantErr, err)
			assert.Contains(t, out.String(), tt.wantOutput)
		})
	}
}

func Test_commandLine_sessionCommands(t *testing.T) {
	cli, _, out := setup(t)

	assert.NoError(t, run(t, cli, "whoami"))
	assert.Contains(t, out.String(), "Not logged in")

	out.Reset()
	assert.NoError(t, run(t, cli, "login"))
	assert.Contains(t, out.String(), "Logged in as admin@school.edu")

	out.Reset()
	assert.NoError(t, run(t, cli, "whoami"))
	assert.Contains(t, out.String(), "credential present")

	out.Reset()
	assert.NoError(t, run(t, cli, "logout"))
	assert.Contains(t, out.String(), "Logged out")
	assert.False(t, cli.manager.Active())
}

func Test_commandLine_views(t *testing.T) {
	cli, _, out := setup(t)
	if err := run(t, cli, "login"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out.Reset()
	assert.NoError(t, run(t, cli, "workload"))
	assert.Contains(t, out.String(), "J. Smith")
	assert.Contains(t, out.String(), "jsmith@school.edu")

	out.Reset()
	assert.NoError(t, run(t, cli, "history"))
	assert.Contains(t, out.String(), "Showing 1 of 1 records.")

	out.Reset()
	assert.NoError(t, run(t, cli, "refresh"))
	assert.Contains(t, out.String(), "2 teachers, 1 history records")
}

func Test_commandLine_upload(t *testing.T) {
	cli, stub, out := setup(t)
	if err := run(t, cli, "login"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// local rejection, no upload call
	err := run(t, cli, "upload", "-file", "roster.txt")
	assert.Error(t, err)
	_, _, _, _, uploads := stub.Calls()
	assert.Equal(t, 0, uploads)

	path := filepath.Join(t.TempDir(), "roster.csv")
	writeTestFile(t, path, "Time,NAGARATHNA\n08:30 - 09:10,2A\n")
	out.Reset()
	assert.NoError(t, run(t, cli, "upload", "-file", path))
	assert.Contains(t, out.String(), "(42 entries created)")
}

func Test_commandLine_report(t *testing.T) {
	cli, _, out := setup(t)
	if err := run(t, cli, "login"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// busy with an empty reason is rejected locally
	err := run(t, cli, "report", "-teacher", "J. Smith", "-date", "2025-03-01", "-status", "Busy")
	assert.Error(t, err)
	assert.Contains(t, renderError(err), "reason")

	out.Reset()
	assert.NoError(t, run(t, cli, "report", "-teacher", "J. Smith", "-date", "2025-03-01"))
	assert.Contains(t, out.String(), "Processed")
	assert.Contains(t, out.String(), "A. Patel")
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writeTestFile() failed: %v", err)
	}
}

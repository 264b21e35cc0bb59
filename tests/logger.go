package testutil

import (
	"io/ioutil"
	"log"

	"github.com/subdesk/subdesk/core"
)

// Logger returns a silent core.Logger for tests.
func Logger() core.Logger {
	return &testLogger{std: log.New(ioutil.Discard, "", 0)}
}

type testLogger struct {
	std *log.Logger
}

var _ core.Logger = (*testLogger)(nil)

func (l testLogger) Debug(msg string, args ...interface{}) {}
func (l testLogger) Info(msg string, args ...interface{})  {}
func (l testLogger) Warn(msg string, args ...interface{})  {}
func (l testLogger) Error(msg string, args ...interface{}) {}
func (l testLogger) Fatal(msg string, args ...interface{}) { l.std.Fatal(msg) }

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/core/session"
	"github.com/subdesk/subdesk/core/timetable"
	"github.com/subdesk/subdesk/services/backend"
	logsvc "github.com/subdesk/subdesk/services/logger"
	sessionstore "github.com/subdesk/subdesk/storage/session"
)

func main() {
	std := log.New(os.Stderr, "subdesk ", log.LstdFlags)

	var logger core.Logger
	if core.Conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	} else {
		logger = logsvc.NewConsoleLogger(std, core.Conf)
	}

	store := sessionstore.NewFileStore(core.Conf.SessionFile)
	client := backend.NewClient(core.Conf, store, logger)
	syncer := roster.NewSynchronizer(client, logger)
	manager := session.NewManager(core.Conf, store, client, syncer, logger)
	client.OnUnauthorized(manager.HandleInvalidated)

	cli := &commandLine{
		conf:      core.Conf,
		log:       logger,
		manager:   manager,
		syncer:    syncer,
		absences:  absence.NewService(client, syncer, logger),
		timetable: timetable.NewService(client, store, syncer, logger),
		out:       os.Stdout,
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintln(os.Stderr, renderError(err))
		}
		os.Exit(1)
	}
}

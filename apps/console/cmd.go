package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/absence"
	"github.com/subdesk/subdesk/core/roster"
	"github.com/subdesk/subdesk/core/session"
	"github.com/subdesk/subdesk/core/timetable"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	log       core.Logger
	manager   *session.Manager
	syncer    *roster.Synchronizer
	absences  *absence.Service
	timetable *timetable.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login [-email EMAIL]                                 - start a session (prompts for the access secret)")
	fmt.Fprintln(cli.out, "  logout                                               - end the session locally")
	fmt.Fprintln(cli.out, "  whoami                                               - show session status")
	fmt.Fprintln(cli.out, "  workload                                             - fetch and show teacher substitution workloads")
	fmt.Fprintln(cli.out, "  history                                              - fetch and show recent substitution history")
	fmt.Fprintln(cli.out, "  refresh                                              - fetch both views once")
	fmt.Fprintln(cli.out, "  upload -file FILE.csv                                - replace the master timetable (destructive)")
	fmt.Fprintln(cli.out, "  report -teacher NAME -date YYYY-MM-DD [-status Absent|Busy] [-reason TEXT]")
	fmt.Fprintln(cli.out, "                                                       - report an absence and assign substitutes")
	fmt.Fprintln(cli.out, "  watch                                                - keep the views refreshed until interrupted")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.RequestTimeout)
	defer cancel()

	switch args[1] {
	case "login":
		loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
		loginEmail := loginCmd.String("email", cli.conf.AdminEmail, "The administrator email to log in as.")
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail)
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "workload":
		return cli.workload(ctx)
	case "history":
		return cli.history(ctx)
	case "refresh":
		return cli.refresh(ctx)
	case "upload":
		uploadCmd := flag.NewFlagSet("upload", flag.ExitOnError)
		uploadFile := uploadCmd.String("file", "", "Path of the master timetable CSV.")
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadFile == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(ctx, *uploadFile)
	case "report":
		reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
		reportTeacher := reportCmd.String("teacher", "", "Name of the absent teacher (as listed in the workload view).")
		reportDate := reportCmd.String("date", "", "Date of absence, YYYY-MM-DD.")
		reportStatus := reportCmd.String("status", absence.StatusAbsent, "Absent or Busy.")
		reportReason := reportCmd.String("reason", "", "Reason; required when status is Busy.")
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.report(ctx, absence.Report{
			TeacherName: *reportTeacher,
			AbsenceDate: *reportDate,
			Status:      *reportStatus,
			Reason:      *reportReason,
		})
	case "watch":
		return cli.watch()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, email string) error {
	fmt.Fprint(cli.out, "Enter access secret:")
	secret, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		secret = []byte(cli.conf.AdminSecret)
	}
	if err = cli.manager.Login(ctx, email, string(secret)); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s.\n", email)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.manager.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) whoami() error {
	if cli.manager.Active() {
		fmt.Fprintf(cli.out, "Session credential present (admin: %s). Validity is checked on the next call.\n", cli.conf.AdminEmail)
	} else {
		fmt.Fprintln(cli.out, "Not logged in.")
	}
	return nil
}

func (cli *commandLine) workload(ctx context.Context) error {
	if err := cli.syncer.Refresh(ctx); err != nil {
		return err
	}
	renderWorkload(cli.out, cli.syncer.Snapshot())
	return nil
}

func (cli *commandLine) history(ctx context.Context) error {
	if err := cli.syncer.Refresh(ctx); err != nil {
		return err
	}
	renderHistory(cli.out, cli.syncer.Snapshot())
	return nil
}

func (cli *commandLine) refresh(ctx context.Context) error {
	if err := cli.syncer.Refresh(ctx); err != nil {
		return err
	}
	snap := cli.syncer.Snapshot()
	fmt.Fprintf(cli.out, "Refreshed: %d teachers, %d history records.\n", len(snap.Workload), snap.HistoryCount())
	return nil
}

func (cli *commandLine) upload(ctx context.Context, file string) error {
	if err := cli.timetable.Select(file); err != nil {
		return err
	}
	outcome, err := cli.timetable.Submit(ctx)
	if err != nil {
		if retained, ok := cli.timetable.Selected(); ok {
			cli.log.Debug("upload failed; file still selected: " + retained)
		}
		return err
	}
	fmt.Fprintf(cli.out, "%s (%d entries created)\n", outcome.Message, outcome.TotalEntries)
	return nil
}

func (cli *commandLine) report(ctx context.Context, rpt absence.Report) error {
	// the form offers only teachers present in the snapshot; fetch it first
	if err := cli.syncer.Refresh(ctx); err != nil {
		return err
	}
	result, err := cli.absences.Submit(ctx, rpt)
	if err != nil {
		return err
	}
	renderResult(cli.out, result)
	return nil
}

func (cli *commandLine) watch() error {
	if !cli.manager.Active() {
		return session.ErrNoCredential
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	cli.manager.OnEnded(func() {
		fmt.Fprintln(cli.out, "Session ended by the server; log in again.")
		done <- syscall.SIGTERM
	})

	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.RequestTimeout)
	defer cancel()
	if err := cli.manager.StartPolling(ctx); err != nil {
		cli.manager.StopPolling()
		return err
	}
	snap := cli.syncer.Snapshot()
	fmt.Fprintf(cli.out, "Watching (every %s): %d teachers, %d history records. Ctrl-C to stop.\n",
		cli.conf.PollInterval, len(snap.Workload), snap.HistoryCount())

	<-done
	cli.manager.StopPolling()
	fmt.Fprintln(cli.out, "Stopped.")
	return nil
}

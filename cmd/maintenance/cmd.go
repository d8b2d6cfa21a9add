package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"tutorlink_go/services"
)

var errHelp = errors.New("help provided")

// errIssues makes verify exit non-zero.
var errIssues = errors.New("issues remain")

// maintainer is the slice of services.MaintenanceService the CLI drives.
type maintainer interface {
	CheckJSON() ([]services.JSONColumnReport, error)
	FixJSON(dryRun bool) ([]services.JSONColumnReport, error)
	CheckApplications() ([]services.ApplicationIssue, error)
	FixApplications(dryRun bool) ([]services.ApplicationIssue, error)
}

type commandLine struct {
	svc  maintainer
	seed func() error
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  check-json                    - count JSON array columns holding non-array values")
	fmt.Fprintln(cli.out, "  fix-json [-dry-run]           - rewrite them as canonical arrays")
	fmt.Fprintln(cli.out, "  check-applications            - list inconsistent tutor applications")
	fmt.Fprintln(cli.out, "  fix-applications [-dry-run]   - repair them and create missing tutors rows")
	fmt.Fprintln(cli.out, "  verify                        - run every check, exit 1 when issues remain")
	fmt.Fprintln(cli.out, "  seed                          - seed the admin user and subjects")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	fixJSONCmd := flag.NewFlagSet("fix-json", flag.ContinueOnError)
	fixJSONDry := fixJSONCmd.Bool("dry-run", false, "report without writing")
	fixAppsCmd := flag.NewFlagSet("fix-applications", flag.ContinueOnError)
	fixAppsDry := fixAppsCmd.Bool("dry-run", false, "report without writing")
	fixJSONCmd.SetOutput(cli.out)
	fixAppsCmd.SetOutput(cli.out)

	switch args[1] {
	case "check-json":
		reports, err := cli.svc.CheckJSON()
		if err != nil {
			return err
		}
		cli.printJSONReports(reports, false)
		return nil
	case "fix-json":
		if err := fixJSONCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		reports, err := cli.svc.FixJSON(*fixJSONDry)
		if err != nil {
			return err
		}
		cli.printJSONReports(reports, true)
		if *fixJSONDry {
			fmt.Fprintln(cli.out, "dry run: no rows written")
		}
		return nil
	case "check-applications":
		issues, err := cli.svc.CheckApplications()
		if err != nil {
			return err
		}
		cli.printIssues(issues)
		return nil
	case "fix-applications":
		if err := fixAppsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		issues, err := cli.svc.FixApplications(*fixAppsDry)
		if err != nil {
			return err
		}
		cli.printIssues(issues)
		if *fixAppsDry {
			fmt.Fprintln(cli.out, "dry run: no rows written")
		}
		return nil
	case "verify":
		return cli.verify()
	case "seed":
		return cli.seed()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) verify() error {
	reports, err := cli.svc.CheckJSON()
	if err != nil {
		return err
	}
	issues, err := cli.svc.CheckApplications()
	if err != nil {
		return err
	}
	bad := 0
	for _, r := range reports {
		bad += r.Bad()
	}
	cli.printJSONReports(reports, false)
	cli.printIssues(issues)
	if bad > 0 || len(issues) > 0 {
		fmt.Fprintf(cli.out, "FAIL: %d bad JSON values, %d application issues\n", bad, len(issues))
		return errIssues
	}
	fmt.Fprintln(cli.out, "OK: no issues found")
	return nil
}

func (cli *commandLine) printJSONReports(reports []services.JSONColumnReport, fixed bool) {
	for _, r := range reports {
		kinds, _ := json.Marshal(r.Kinds)
		line := fmt.Sprintf("%s.%s rows=%d bad=%d kinds=%s", r.Table, r.Column, r.Rows, r.Bad(), kinds)
		if fixed {
			line += fmt.Sprintf(" fixed=%d", r.Fixed)
		}
		fmt.Fprintln(cli.out, line)
	}
}

func (cli *commandLine) printIssues(issues []services.ApplicationIssue) {
	if len(issues) == 0 {
		fmt.Fprintln(cli.out, "applications: no issues")
		return
	}
	for _, is := range issues {
		fmt.Fprintf(cli.out, "application %d: %s\n", is.ApplicationID, is.Problem)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	calSvc *calendar.Service
	attSvc *attendance.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                 - run a goose migration command (up, down, status, ...)")
	fmt.Println("  calendar -file PATH                    - import a school year definition (YAML)")
	fmt.Println("  report -section ID [PERIOD] [-json]    - print the attendance of a section")
	fmt.Println("         PERIOD: -date DATE | -week ID | -bimester ID | -from DATE -to DATE")
	fmt.Println("  digest [-cycle ID] [-date DATE]        - email the daily attendance digests")
	fmt.Println("  catalog [-json]                        - print the attendance status catalog")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "calendar":
		return cli.importCalendar(args[2:])
	case "report":
		return cli.report(args[2:])
	case "digest":
		return cli.digest(args[2:])
	case "catalog":
		return cli.catalog(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// parse parses `args` with `fs`, mapping -h to errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

// dateFlag is a flag.Value parsing "YYYY-MM-DD".
type dateFlag struct {
	calendar.Date
}

func (d *dateFlag) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Date.String()
}

func (d *dateFlag) Set(s string) error {
	date, err := calendar.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = date
	return nil
}

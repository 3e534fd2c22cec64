package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/calendar"
)

func (cli *commandLine) importCalendar(args []string) error {
	cmd := flag.NewFlagSet("calendar", flag.ContinueOnError)
	file := cmd.String("file", "", "The school year definition (YAML).")
	if err := parse(cmd, args); err != nil {
		return err
	}
	if *file == "" {
		cmd.Usage()
		return errHelp
	}

	f, err := os.Open(*file)
	if err != nil {
		return errors.Wrap(err, "opening school year definition")
	}
	defer func() { _ = f.Close() }()

	def, err := calendar.ParseYearDefinition(f)
	if err != nil {
		return err
	}
	cycle, err := cli.calSvc.Import(context.Background(), def)
	if err != nil {
		return errors.Wrap(err, "importing school year")
	}
	_, _ = fmt.Fprintf(cli.out, "cycle %q imported (id: %d)\n", cycle.Name, cycle.ID)
	return nil
}

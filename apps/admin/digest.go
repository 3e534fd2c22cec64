package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/calendar"
)

func (cli *commandLine) digest(args []string) error {
	var date dateFlag

	cmd := flag.NewFlagSet("digest", flag.ContinueOnError)
	cycleID := cmd.Int64("cycle", 0, "The cycle id, the active cycle by default.")
	cmd.Var(&date, "date", "The digest date (YYYY-MM-DD), today by default.")
	if err := parse(cmd, args); err != nil {
		return err
	}

	ctx := context.Background()
	if *cycleID == 0 {
		cycle, err := cli.calSvc.ActiveCycle(ctx)
		if err != nil {
			return errors.Wrap(err, "getting active cycle")
		}
		*cycleID = cycle.ID
	}
	if date.IsZero() {
		date.Date = calendar.Today()
	}

	n, err := cli.attSvc.SendDailyDigests(ctx, *cycleID, date.Date)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d digest(s) sent for %s\n", n, date.Date)
	return nil
}

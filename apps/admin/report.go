package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

func (cli *commandLine) report(args []string) error {
	var date, from, to dateFlag

	cmd := flag.NewFlagSet("report", flag.ContinueOnError)
	sectionID := cmd.Int64("section", 0, "The section id.")
	weekID := cmd.Int64("week", 0, "Report an academic week.")
	bimesterID := cmd.Int64("bimester", 0, "Report a bimester.")
	asJSON := cmd.Bool("json", false, "Print JSON even on a terminal.")
	cmd.Var(&date, "date", "Report a day (YYYY-MM-DD), today by default.")
	cmd.Var(&from, "from", "Report a date range, from (YYYY-MM-DD).")
	cmd.Var(&to, "to", "Report a date range, to (YYYY-MM-DD).")
	if err := parse(cmd, args); err != nil {
		return err
	}

	var periods int
	for _, set := range []bool{!date.IsZero(), *weekID != 0, *bimesterID != 0, !from.IsZero() || !to.IsZero()} {
		if set {
			periods++
		}
	}
	if *sectionID == 0 || periods > 1 || from.IsZero() != to.IsZero() {
		cmd.Usage()
		return errHelp
	}

	ctx := context.Background()
	var (
		report interface{}
		err    error
	)
	switch {
	case *weekID != 0:
		report, err = cli.attSvc.SectionWeek(ctx, *sectionID, *weekID)
	case *bimesterID != 0:
		report, err = cli.attSvc.SectionBimester(ctx, *sectionID, *bimesterID)
	case !from.IsZero():
		report, err = cli.attSvc.SectionPeriod(ctx, *sectionID, from.Date, to.Date)
	default:
		if date.IsZero() {
			date.Date = calendar.Today()
		}
		report, err = cli.attSvc.SectionDay(ctx, *sectionID, date.Date)
	}
	if err != nil {
		return errors.Wrap(err, "computing report")
	}

	if *asJSON || !isTerminalFunc() {
		return printJSON(cli.out, report)
	}
	switch r := report.(type) {
	case attendance.DayReport:
		return printDayReport(cli.out, r)
	case attendance.PeriodReport:
		return printPeriodReport(cli.out, r)
	}
	return nil
}

func (cli *commandLine) catalog(args []string) error {
	cmd := flag.NewFlagSet("catalog", flag.ContinueOnError)
	asJSON := cmd.Bool("json", false, "Print JSON even on a terminal.")
	if err := parse(cmd, args); err != nil {
		return err
	}

	catalog, err := cli.attSvc.Catalog(context.Background())
	if err != nil {
		return err
	}
	if *asJSON || !isTerminalFunc() {
		return printJSON(cli.out, catalog.Statuses())
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tKIND\tORDER\tACTIVE")
	for _, s := range catalog.Statuses() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", s.Code, s.Name, s.Kind, s.Order, s.IsActive)
	}
	return w.Flush()
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDayReport(out io.Writer, r attendance.DayReport) error {
	_, _ = fmt.Fprintf(out, "%s - %s%s\n\n", r.Section.Label(), r.Summary.Date, resolutionLabel(r.Resolution))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STUDENT\tSTATUS\tCLASSES")
	for _, d := range r.Students {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", d.StudentName, d.DayStatus, len(d.ClassAttendances))
	}
	for _, e := range r.WithoutRecord {
		_, _ = fmt.Fprintf(w, "%s\t-\t0\n", e.StudentName)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := r.Summary
	_, err := fmt.Fprintf(out, "\ntotal: %d  present: %d  late: %d  excused: %d  absent: %d (%d without record)  rate: %.1f%%\n",
		s.Total, s.Present, s.Late, s.Excused, s.Absent, s.WithoutRecord, s.AttendanceRate)
	return err
}

func printPeriodReport(out io.Writer, r attendance.PeriodReport) error {
	title := fmt.Sprintf("%s - %s to %s", r.Section.Label(), r.Summary.From, r.Summary.To)
	if r.Week != nil {
		title += fmt.Sprintf(" (week %d)", r.Week.Number)
	} else if r.Bimester != nil {
		title += fmt.Sprintf(" (bimester %d)", r.Bimester.Number)
	}
	_, _ = fmt.Fprintf(out, "%s\n\n", title)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, "DATE\tTOTAL\tPRESENT\tLATE\tEXCUSED\tABSENT\tRATE\t")
	for _, d := range r.Days {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t\n", d.Date, d.Total, d.Present, d.Late, d.Excused, d.Absent, d.AttendanceRate)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := r.Summary
	_, err := fmt.Fprintf(out, "\n%d date(s)  avg present: %d  avg late: %d  avg excused: %d  avg absent: %d  rate: %.1f%%\n",
		s.Dates, s.Present, s.Late, s.Excused, s.Absent, s.AttendanceRate)
	return err
}

func resolutionLabel(res calendar.Resolution) string {
	switch {
	case res.Bimester == nil:
		return " (out of the school calendar)"
	case res.Holiday != nil && !res.Holiday.IsRecovered:
		return fmt.Sprintf(" (bimester %d, holiday: %s)", res.Bimester.Number, res.Holiday.Description)
	case res.Week != nil:
		return fmt.Sprintf(" (bimester %d, week %d)", res.Bimester.Number, res.Week.Number)
	}
	return fmt.Sprintf(" (bimester %d)", res.Bimester.Number)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

const displayLayout = "2006-01-02 15:04 MST"

func printReminders(w io.Writer, format string, items []reminder.Reminder, now time.Time) error {
	switch format {
	case "json":
		return writeJSON(w, items)
	case "yaml":
		return writeYAML(w, items)
	case "table", "":
		return writeTable(w, items, now)
	default:
		return fmt.Errorf("unknown format %q (expected table, json, yaml)", format)
	}
}

func printReminder(w io.Writer, format string, r reminder.Reminder) error {
	switch format {
	case "json":
		return writeJSON(w, r)
	case "yaml", "":
		return writeYAML(w, r)
	default:
		return fmt.Errorf("unknown format %q (expected json, yaml)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeTable(w io.Writer, items []reminder.Reminder, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No reminders found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHANNEL\tTITLE\tEVERY\tNEXT\tSTATUS")
	for _, r := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ChannelID, truncate(r.Title, 32), formatInterval(r.IntervalSeconds),
			formatNext(r, now), status(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total: %d\n", len(items))
	return err
}

func formatNext(r reminder.Reminder, now time.Time) string {
	if r.NextOccurrence.IsZero() || r.IsExpired {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", r.NextOccurrence.Format(displayLayout), humanize.RelTime(r.NextOccurrence, now, "ago", "from now"))
}

func status(r reminder.Reminder) string {
	switch {
	case r.IsExpired:
		return "expired"
	case !r.IsActive:
		return "inactive"
	case r.IgnoreNextOccurrence:
		return "skip-next"
	default:
		return "active"
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

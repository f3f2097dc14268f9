package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

// importFile is the YAML layout accepted by "reminder import".
type importFile struct {
	Reminders []importItem `yaml:"reminders"`
}

type importItem struct {
	Channel  string `yaml:"channel"`
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Every    string `yaml:"every"`
	Priority string `yaml:"priority"`
	Active   *bool  `yaml:"active"`
	SkipNext bool   `yaml:"skip_next"`
}

func newReminderImportCmd(opts *globalOptions, sf *sessionFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create reminders from a YAML file; nothing is stored if any entry is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var file importFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(file.Reminders) == 0 {
				return errors.New("no reminders in file")
			}

			return withApp(opts, sf, func(a *app) error {
				now := a.clock.Now()
				errOut := cmd.ErrOrStderr()

				items := make([]reminder.Reminder, 0, len(file.Reminders))
				var failed int
				for i, in := range file.Reminders {
					r, err := in.toReminder(a, now)
					if err == nil {
						err = a.session.Authorize(r.ChannelID)
					}
					if err == nil {
						if errs := reminder.Validate(r, now, a.limits); len(errs) > 0 {
							err = errs
						}
					}
					if err != nil {
						failed++
						fmt.Fprintf(errOut, "❌ entry %d (%q): %v\n", i+1, in.Title, err)
						continue
					}
					items = append(items, r)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d entries are invalid, nothing imported", failed, len(file.Reminders))
				}

				out := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintf(out, "%d reminders are valid (dry run)\n", len(items))
					return nil
				}
				for i := range items {
					if err := a.store.Upsert(cmd.Context(), &items[i]); err != nil {
						return fmt.Errorf("store entry %d: %w", i+1, err)
					}
					fmt.Fprintf(out, "✅ %s  %s\n", items[i].ID, items[i].Title)
				}
				fmt.Fprintf(out, "Imported %d reminders\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only")
	return cmd
}

func (in importItem) toReminder(a *app, now time.Time) (reminder.Reminder, error) {
	loc := a.calc.Location()
	start, err := parseTime(in.Start, loc)
	if err != nil {
		return reminder.Reminder{}, err
	}
	end, err := parseTime(in.End, loc)
	if err != nil {
		return reminder.Reminder{}, err
	}
	interval, err := parseInterval(in.Every)
	if err != nil {
		return reminder.Reminder{}, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return reminder.Reminder{}, err
	}
	if in.End == "" && interval == reminder.OneTime {
		end = start
	}

	r := reminder.Reminder{
		CreatedAt:            now,
		ModifiedAt:           now,
		StartDate:            start,
		EndDate:              end,
		IntervalSeconds:      interval,
		IgnoreNextOccurrence: in.SkipNext,
		IsActive:             in.Active == nil || *in.Active,
		ChannelID:            in.Channel,
		Title:                in.Title,
		Text:                 in.Text,
		Priority:             priority,
	}
	a.session.Stamp(&r)
	return r, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

type sessionFlags struct {
	user      string
	moderates []string
}

// reminderFlags are the editable fields shared by add and edit.
type reminderFlags struct {
	channel  string
	title    string
	text     string
	start    string
	end      string
	every    string
	priority string
	inactive bool
	skipNext bool
}

func (f *reminderFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.channel, "channel", "", "target channel id")
	fl.StringVar(&f.title, "title", "", "announcement title")
	fl.StringVar(&f.text, "text", "", "announcement text")
	fl.StringVar(&f.start, "start", "", "first occurrence (YYYY-MM-DD HH:MM in the scheduler zone, or RFC 3339)")
	fl.StringVar(&f.end, "end", "", "last allowed occurrence; defaults to --start for one-time reminders")
	fl.StringVar(&f.every, "every", "once", "repeat interval: once, daily, weekly, <n>d, <n>w")
	fl.StringVar(&f.priority, "priority", "normal", "announcement priority: low, normal, high")
	fl.BoolVar(&f.inactive, "inactive", false, "create the reminder switched off")
	fl.BoolVar(&f.skipNext, "skip-next", false, "skip the next occurrence")
}

func newReminderCmd(opts *globalOptions) *cobra.Command {
	sf := &sessionFlags{}

	cmd := &cobra.Command{
		Use:     "reminder",
		Aliases: []string{"reminders", "r"},
		Short:   "Manage announcement reminders",
	}
	cmd.PersistentFlags().StringVar(&sf.user, "user", "", "act as this user (overrides session.user_id)")
	cmd.PersistentFlags().StringSliceVar(&sf.moderates, "moderates", nil, "channels the user moderates (overrides session.moderates)")

	cmd.AddCommand(
		newReminderAddCmd(opts, sf),
		newReminderEditCmd(opts, sf),
		newReminderListCmd(opts),
		newReminderShowCmd(opts),
		newReminderRemoveCmd(opts, sf),
		newReminderSkipCmd(opts, sf),
		newReminderToggleCmd(opts, sf, "activate", true),
		newReminderToggleCmd(opts, sf, "deactivate", false),
		newReminderNextCmd(opts),
		newReminderImportCmd(opts, sf),
	)
	return cmd
}

// withApp opens the collaborators, runs fn and closes them.
func withApp(opts *globalOptions, sf *sessionFlags, fn func(a *app) error) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if sf != nil {
		a.withSession(sf.user, sf.moderates)
	}
	return fn(a)
}

func newReminderAddCmd(opts *globalOptions, sf *sessionFlags) *cobra.Command {
	f := &reminderFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reminder",
		Example: `  campusnews reminder add --channel news --title "Library hours" \
    --text "The library closes at 22:00" --start "2024-09-02 09:00" \
    --end "2024-12-20 09:00" --every weekly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, sf, func(a *app) error {
				var r reminder.Reminder
				if err := f.apply(cmd, &r, a.calc.Location(), true); err != nil {
					return err
				}
				r.IsActive = !f.inactive

				if err := a.session.Authorize(r.ChannelID); err != nil {
					return err
				}
				a.session.Stamp(&r)

				now := a.clock.Now()
				r.CreatedAt, r.ModifiedAt = now, now

				if err := checkReminder(cmd.ErrOrStderr(), r, now, a.limits); err != nil {
					return err
				}
				if err := a.store.Upsert(cmd.Context(), &r); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✅ Reminder created: %s\n", r.ID)
				printPreview(out, a, r, now)
				return nil
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newReminderEditCmd(opts *globalOptions, sf *sessionFlags) *cobra.Command {
	f := &reminderFlags{}
	var active bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a reminder; only the given flags are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, sf, func(a *app) error {
				ctx := cmd.Context()
				r, err := a.store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.session.Authorize(r.ChannelID); err != nil {
					return err
				}

				if err := f.apply(cmd, &r, a.calc.Location(), false); err != nil {
					return err
				}
				if cmd.Flags().Changed("active") {
					r.IsActive = active
				}
				if err := a.session.Authorize(r.ChannelID); err != nil {
					return err
				}

				now := a.clock.Now()
				if err := checkReminder(cmd.ErrOrStderr(), r, now, a.limits); err != nil {
					return err
				}

				// Derived state is re-established by the dispatcher.
				r.Touch(now)
				r.NextOccurrence = time.Time{}
				r.RefreshExpired(now)

				if err := a.store.Upsert(ctx, &r); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✅ Reminder updated: %s\n", r.ID)
				printPreview(out, a, r, now)
				return nil
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&active, "active", true, "switch the reminder on or off")
	return cmd
}

// apply copies flags into r. With create set every flag applies, otherwise
// only the flags given on the command line.
func (f *reminderFlags) apply(cmd *cobra.Command, r *reminder.Reminder, loc *time.Location, create bool) error {
	set := func(name string) bool { return create || cmd.Flags().Changed(name) }

	if set("channel") {
		r.ChannelID = f.channel
	}
	if set("title") {
		r.Title = f.title
	}
	if set("text") {
		r.Text = f.text
	}
	if set("start") {
		t, err := parseTime(f.start, loc)
		if err != nil {
			return err
		}
		r.StartDate = t
	}
	if set("end") {
		t, err := parseTime(f.end, loc)
		if err != nil {
			return err
		}
		r.EndDate = t
	}
	if set("every") {
		seconds, err := parseInterval(f.every)
		if err != nil {
			return err
		}
		r.IntervalSeconds = seconds
	}
	if set("priority") {
		p, err := parsePriority(f.priority)
		if err != nil {
			return err
		}
		r.Priority = p
	}
	if set("skip-next") {
		r.IgnoreNextOccurrence = f.skipNext
	}

	if create && f.end == "" && r.IsOneTime() {
		r.EndDate = r.StartDate
	}
	return nil
}

// checkReminder validates r and prints one line per problem.
func checkReminder(w io.Writer, r reminder.Reminder, now time.Time, limits reminder.Limits) error {
	errs := reminder.Validate(r, now, limits)
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("reminder is invalid: %w", errs.Err())
}

func newReminderListCmd(opts *globalOptions) *cobra.Command {
	var (
		format  string
		channel string
		active  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, nil, func(a *app) error {
				items, err := a.store.Load(cmd.Context())
				if err != nil {
					return err
				}

				filtered := items[:0]
				for _, r := range items {
					if channel != "" && r.ChannelID != channel {
						continue
					}
					if active && (!r.IsActive || r.IsExpired) {
						continue
					}
					filtered = append(filtered, r)
				}

				return printReminders(cmd.OutOrStdout(), format, filtered, a.clock.Now())
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json, yaml")
	cmd.Flags().StringVar(&channel, "channel", "", "only reminders of this channel")
	cmd.Flags().BoolVar(&active, "active", false, "only active, unexpired reminders")
	return cmd
}

func newReminderShowCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, nil, func(a *app) error {
				r, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printReminder(cmd.OutOrStdout(), format, r)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "output format: json, yaml")
	return cmd
}

func newReminderRemoveCmd(opts *globalOptions, sf *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a reminder",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, sf, func(a *app) error {
				ctx := cmd.Context()
				r, err := a.store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.session.Authorize(r.ChannelID); err != nil {
					return err
				}
				if err := a.store.Remove(ctx, r.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "🗑 Reminder removed: %s\n", r.ID)
				return nil
			})
		},
	}
}

// mutate loads a reminder, checks the session, applies fn and stores it with
// a new ModifiedAt. fn returns false when nothing changed.
func mutate(ctx context.Context, a *app, id string, fn func(r *reminder.Reminder) bool) (reminder.Reminder, bool, error) {
	r, err := a.store.Get(ctx, id)
	if err != nil {
		return r, false, err
	}
	if err := a.session.Authorize(r.ChannelID); err != nil {
		return r, false, err
	}
	if !fn(&r) {
		return r, false, nil
	}

	r.Touch(a.clock.Now())
	if err := a.store.Upsert(ctx, &r); err != nil {
		return r, false, err
	}
	return r, true, nil
}

func newReminderSkipCmd(opts *globalOptions, sf *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <id>",
		Short: "Skip the next occurrence of a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, sf, func(a *app) error {
				r, changed, err := mutate(cmd.Context(), a, args[0], func(r *reminder.Reminder) bool {
					if r.IgnoreNextOccurrence {
						return false
					}
					r.IgnoreNextOccurrence = true
					return true
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !changed {
					fmt.Fprintf(out, "Next occurrence of %s is already skipped\n", r.ID)
					return nil
				}
				fmt.Fprintf(out, "⏭ Next occurrence of %s will be skipped\n", r.ID)
				printPreview(out, a, r, a.clock.Now())
				return nil
			})
		},
	}
}

func newReminderToggleCmd(opts *globalOptions, sf *sessionFlags, name string, active bool) *cobra.Command {
	short := "Switch a reminder on"
	if !active {
		short = "Switch a reminder off; occurrences pass without announcements"
	}
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, sf, func(a *app) error {
				r, changed, err := mutate(cmd.Context(), a, args[0], func(r *reminder.Reminder) bool {
					if r.IsActive == active {
						return false
					}
					r.IsActive = active
					return true
				})
				if err != nil {
					return err
				}
				state := "active"
				if !active {
					state = "inactive"
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Reminder %s is already %s\n", r.ID, state)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reminder %s is now %s\n", r.ID, state)
				return nil
			})
		},
	}
}

func newReminderNextCmd(opts *globalOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <id>",
		Short: "Preview upcoming occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be >= 1")
			}
			return withApp(opts, nil, func(a *app) error {
				r, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				times, err := upcoming(a.calc, r, a.clock.Now(), count)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(times) == 0 {
					fmt.Fprintf(out, "Reminder %s has no upcoming occurrences\n", r.ID)
					return nil
				}
				for _, t := range times {
					fmt.Fprintln(out, t.Format(displayLayout))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of occurrences")
	return cmd
}

// upcoming lists up to n occurrences of r from now on, honoring the skip
// flag. It works on a copy; r is not changed.
func upcoming(calc *reminder.Calculator, r reminder.Reminder, now time.Time, n int) ([]time.Time, error) {
	if _, err := calc.FirstOccurrence(&r, now); err != nil {
		return nil, err
	}
	if reminder.IsExpired(r, now) {
		return nil, nil
	}

	var out []time.Time
	for len(out) < n && !r.NextOccurrence.After(r.EndDate) {
		out = append(out, r.NextOccurrence)
		if r.IsOneTime() {
			break
		}
		if _, err := calc.Advance(&r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func printPreview(w io.Writer, a *app, r reminder.Reminder, now time.Time) {
	times, err := upcoming(a.calc, r, now, 1)
	if err != nil || len(times) == 0 {
		fmt.Fprintln(w, "   next: none")
		return
	}
	fmt.Fprintf(w, "   next: %s\n", times[0].Format(displayLayout))
}

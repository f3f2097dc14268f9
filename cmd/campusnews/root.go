package main

import (
	"github.com/spf13/cobra"

	"github.com/aatumaykin/campusnews/internal/config"
)

// globalOptions are the persistent flags shared by all subcommands.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// newRootCmd builds the command tree. Flags bind to fresh state on every
// call, so tests can execute independent command trees.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "campusnews",
		Short: "campusnews - recurring announcement reminders for university channels",
		Long: `campusnews schedules automated announcements for university news channels.
Moderators create one-time or recurring reminders; the serve command evaluates
them on a cron tick and emits an announcement each time one falls due.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional .env file loaded before the config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newReminderCmd(opts))

	return cmd
}

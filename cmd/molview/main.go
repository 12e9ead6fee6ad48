package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/philipparndt/gomol/internal/app"
	"github.com/philipparndt/gomol/internal/config"
	"github.com/philipparndt/gomol/version"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	verbose   bool
	offline   bool
	journal   string
	remoteURL string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "molview",
		Short: "Inspect and measure molecular structures",
		Long: `molview loads molecular structures from the RCSB Protein Data Bank, from
URLs, S3 buckets or local PDB/mmCIF files, and reports statistics, trajectory
frames and atom distances, angles and dihedrals.`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.offline, "offline", false, "Skip the entry metadata lookup")
	flags.StringVar(&opts.journal, "journal", "", "SQLite measurement journal (default $GOMOL_JOURNAL)")
	flags.StringVar(&opts.remoteURL, "remote-url", "", "Download URL template with an {id} placeholder")

	rootCmd.AddCommand(
		newInfoCmd(opts),
		newMeasureCmd(opts),
		newFramesCmd(opts),
		newJournalCmd(opts),
	)
	return rootCmd
}

// config resolves the settings from defaults, the environment and flags
func (o *globalOptions) config() (config.Config, error) {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return cfg, err
	}
	if o.journal != "" {
		cfg.JournalPath = o.journal
	}
	if o.remoteURL != "" {
		cfg.RemoteURLTemplate = o.remoteURL
	}
	return cfg, cfg.Validate()
}

// openApp builds the application; the caller closes it
func (o *globalOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cmd.ErrOrStderr(), o.verbose)
	return app.New(cmd.Context(), cfg, logger, app.Options{Offline: o.offline})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfg is filled before any init func runs so flag defaults can read it.
var cfg = loadConfig()

var (
	flagStateBackend string
	flagStateDir     string
	flagChangelog    string
)

var rootCmd = &cobra.Command{
	Use:   "kitctl",
	Short: "Hydraulic kit configurator for TRAC360 and FUNCTION360",
	Long: `kitctl drives configurator sessions for the TRAC360 and FUNCTION360
hydraulic kit lines: it applies selections, prints live pricing, checks a
finished kit out to the cart, snapshots session state and serves the ops
endpoints.

Settings come from the environment or a .env file (KIT_STATE_BACKEND,
KIT_STATE_DIR, KIT_CHANGELOG_SINK, KIT_KAFKA_BOOTSTRAP, KIT_CATALOG_URL,
KIT_PDF_URL, KIT_MAIL_URL, S3_*, DATABASE_URL, KIT_CART_TOPIC); the
persistent flags below override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		f := cmd.Flags()
		if f.Changed("state") {
			cfg.StateBackend = flagStateBackend
		}
		if f.Changed("state-dir") {
			cfg.StateDir = flagStateDir
		}
		if f.Changed("changelog") {
			cfg.ChangelogSink = flagChangelog
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagStateBackend, "state", cfg.StateBackend, "state backend: memory|pebble|badger")
	pf.StringVar(&flagStateDir, "state-dir", cfg.StateDir, "directory of the durable state backend")
	pf.StringVar(&flagChangelog, "changelog", cfg.ChangelogSink, "changelog sink: file|kafka|both|none")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp opens the shared collaborators for the duration of fn.
func withApp(fn func(a *app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

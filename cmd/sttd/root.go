package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sttd/internal/common/logutil"
	"sttd/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	dataDir    string

	cfg config.Config
	log zerolog.Logger
}

// load resolves the effective configuration; flags win over file and env.
func (o *options) load(stderr io.Writer) error {
	cfg, err := config.Resolve(o.configPath, o.envFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.log = logutil.New(cfg.Log.Level, cfg.Log.Format, stderr)
	return nil
}

func buildRootCmd() *cobra.Command {
	o := &options{envFile: ".env"}
	root := &cobra.Command{
		Use:           "sttd",
		Short:         "Push-to-talk front end for a local speech-to-text runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return o.load(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&o.envFile, "env-file", o.envFile, "Dotenv file loaded before reading STTD_* variables")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error")
	pf.StringVar(&o.logFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&o.dataDir, "data-dir", "", "Application data directory (runtime, models, logs)")

	root.AddCommand(
		newServeCmd(o),
		newListenCmd(o),
		newTranscribeCmd(o),
		newEnsureCmd(o),
		newVersionCmd(),
	)
	return root
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newEnsureCmd(o *options) *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:     "ensure",
		Short:   "Install the runtime if needed, start it and report its status",
		Example: "  sttd ensure\n  sttd ensure --keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			eng := buildEngine(o.cfg, o.log)
			defer eng.Close()

			st := eng.EnsureReady(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(st); err != nil {
				return err
			}
			if !eng.Ready() {
				return fmt.Errorf("runtime not ready: %s", st.Message)
			}
			if keep {
				o.log.Info().Int("port", st.Port).Msg("runtime running; Ctrl+C to stop")
				<-ctx.Done()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the runtime running until interrupted")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sttd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	clientOrigin     string
	dbPath           string
	logLevel         string
	port             int
	pruneInterval    time.Duration
	seed             bool
	server           string
	ticketSecret     string
	ticketTTL        time.Duration
	trustClientTruth bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.ticketTTL <= 0 {
		return errors.New("--ticket-ttl must be positive")
	}
	if c.pruneInterval <= 0 {
		return errors.New("--prune-interval must be positive")
	}
	return nil
}

func (c *Config) addr() string { return fmt.Sprintf("%s:%d", c.bind, c.port) }

// applyLogLevel sets the global zerolog level from --log-level.
func (c *Config) applyLogLevel() error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.logLevel))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", c.logLevel, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CARGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "carguess",
		Short:         "Guess the price and model of real car listings.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.applyLogLevel()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.dbPath, "db", "./data/carguess.db", "sqlite database path, empty for an in-memory catalog (env: CARGUESS_DB)")
	pfs.StringVar(&cfg.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error (env: CARGUESS_LOG_LEVEL)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CARGUESS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 1121, "port to listen on (env: CARGUESS_PORT)")
	fs.StringVar(&cfg.clientOrigin, "client-origin", "*", "allowed CORS origin (env: CARGUESS_CLIENT_ORIGIN)")
	fs.BoolVar(&cfg.seed, "seed", true, "load the bundled sample listings into an empty catalog (env: CARGUESS_SEED)")
	fs.StringVar(&cfg.ticketSecret, "ticket-secret", "", "HMAC secret for round tickets, random per process if empty (env: CARGUESS_TICKET_SECRET)")
	fs.DurationVar(&cfg.ticketTTL, "ticket-ttl", 30*time.Minute, "how long a round ticket stays valid (env: CARGUESS_TICKET_TTL)")
	fs.BoolVar(&cfg.trustClientTruth, "trust-client-truth", true, "score guesses without a ticket against the record the client sends (env: CARGUESS_TRUST_CLIENT_TRUTH)")
	fs.DurationVar(&cfg.pruneInterval, "prune-interval", 5*time.Minute, "how often expired tickets are pruned (env: CARGUESS_PRUNE_INTERVAL)")

	cmd.AddCommand(newImportCmd(cfg), newPlayCmd(cfg))

	bindEnv(v, pfs)
	bindEnv(v, fs)
	for _, sub := range cmd.Commands() {
		bindEnv(v, sub.Flags())
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("carguess v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// bindEnv lets CARGUESS_* variables (and .env) fill any flag not set on
// the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

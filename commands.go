package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/carguess/assets"
	"github.com/robalobadob/carguess/internal/catalog"
	"github.com/robalobadob/carguess/internal/client"
	"github.com/robalobadob/carguess/internal/db"
	"github.com/robalobadob/carguess/internal/httpserver"
	"github.com/robalobadob/carguess/internal/round"
	"github.com/robalobadob/carguess/internal/rounds"
)

// stores bundles the catalog and ticket ledger, backed by SQLite when
// --db is set and by memory otherwise.
type stores struct {
	catalog catalog.Catalog
	ledger  rounds.Ledger
	close   func() error
}

func openStores(dbPath string) (*stores, error) {
	if dbPath == "" {
		return &stores{
			catalog: catalog.NewMemory(),
			ledger:  rounds.NewMemoryLedger(),
			close:   func() error { return nil },
		}, nil
	}
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, assets.Migrations()); err != nil {
		conn.Close()
		return nil, err
	}
	return &stores{
		catalog: catalog.NewSQLite(conn),
		ledger:  rounds.NewSQLLedger(conn),
		close:   conn.Close,
	}, nil
}

// seedIfEmpty loads the bundled sample listings into an empty catalog.
func seedIfEmpty(ctx context.Context, cat catalog.Catalog) error {
	n, err := cat.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	data, err := assets.SeedCars()
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	cars, err := catalog.ParseExport(data)
	if err != nil {
		return err
	}
	if err := cat.Upsert(ctx, cars...); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	log.Info().Int("cars", len(cars)).Msg("seeded catalog")
	return nil
}

func serve(ctx context.Context, cfg *Config) error {
	st, err := openStores(cfg.dbPath)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.seed {
		if err := seedIfEmpty(ctx, st.catalog); err != nil {
			return err
		}
	}

	secret := cfg.ticketSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		log.Warn().Msg("no --ticket-secret set; tickets will not survive a restart")
	}
	issuer := rounds.NewIssuer(secret, cfg.ticketTTL, nil)

	sched, err := rounds.StartPruner(st.ledger, cfg.pruneInterval, nil,
		log.With().Str("component", "pruner").Logger())
	if err != nil {
		return err
	}
	defer func() { _ = sched.Shutdown() }()

	srv := httpserver.New(httpserver.Config{
		Catalog:          st.catalog,
		Tickets:          issuer,
		Ledger:           st.ledger,
		TrustClientTruth: cfg.trustClientTruth,
		ClientOrigin:     cfg.clientOrigin,
		Logger:           log.Logger,
	})

	hs := &http.Server{
		Addr:              cfg.addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	log.Info().
		Str("addr", cfg.addr()).
		Str("db", cfg.dbPath).
		Bool("trust_client_truth", cfg.trustClientTruth).
		Msg("starting carguess")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}

func newImportCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON array of listings into the SQLite catalog.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.dbPath == "" {
				return errors.New("import needs --db")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cars, err := catalog.ParseExport(data)
			if err != nil {
				return err
			}
			st, err := openStores(cfg.dbPath)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.catalog.Upsert(cmd.Context(), cars...); err != nil {
				return err
			}
			n, err := st.catalog.Count(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("imported", len(cars)).Int("total", n).Str("file", args[0]).Msg("import done")
			return nil
		},
	}
}

func newPlayCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a session in the terminal against a running server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			c := client.New(cfg.server)
			ctl := round.New(c, c, round.WithLogger(logger))
			p := newPlayer(ctl, c, cmd.InOrStdin(), cmd.OutOrStdout())
			defer p.close()
			return p.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&cfg.server, "server", "http://localhost:1121", "server base URL (env: CARGUESS_SERVER)")
	return cmd
}

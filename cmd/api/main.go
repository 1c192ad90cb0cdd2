package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medication-adherence/internal/adapters/auth/jwtauth"
	"medication-adherence/internal/adapters/locking/redislock"
	"medication-adherence/internal/adapters/messaging/kafka"
	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/config"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/confirmations"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/router"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "adherence-api",
		Short: "Medication adherence scheduling and risk API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rolloverCmd())
	rootCmd.AddCommand(backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the daily rollover and the readings consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				return errors.New("DB_DSN is required")
			}

			db, err := pg.Open(cmd.Context(), cfg.DBDSN, poolOptions(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pg.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema applied successfully.")
			return nil
		},
	}
}

func rolloverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Close adherence facts for a past date (default: yesterday)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("date")

			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			date := env.clk.Today().AddDays(-1)
			if raw != "" {
				if date, err = clock.ParseDate(raw); err != nil {
					return err
				}
			}

			runner := adherence.NewRunner(env.app.Adherence, env.app.Medications, env.log, adherence.RunnerOptions{
				Workers: env.cfg.RolloverWorkers,
			})
			report, err := runner.RunDate(cmd.Context(), date)
			if err != nil {
				return err
			}

			fmt.Printf("Rollover %s: %d processed, %d failed\n", date, report.Processed, len(report.Failed))
			for _, f := range report.Failed {
				fmt.Printf("  %s: %v\n", f.ElderID, f.Err)
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d elder(s) failed", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "Date to close (YYYY-MM-DD)")
	return cmd
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Record an administrative confirmation for a past dose and re-close that date",
		RunE: func(cmd *cobra.Command, args []string) error {
			elderID, _ := cmd.Flags().GetString("elder")
			medID, _ := cmd.Flags().GetString("medication")
			rawDate, _ := cmd.Flags().GetString("date")
			rawTime, _ := cmd.Flags().GetString("time")
			actor, _ := cmd.Flags().GetString("actor")

			date, err := clock.ParseDate(rawDate)
			if err != nil {
				return err
			}
			tod, err := clock.ParseTimeOfDay(rawTime)
			if err != nil {
				return err
			}

			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			res, err := env.app.Confirmations.Backfill(cmd.Context(), confirmations.BackfillInput{
				ElderID:      elderID,
				ActorID:      actor,
				MedicationID: medID,
				Date:         date,
				TimeOfDay:    tod,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Backfill %s %s %s: %s\n", medID, date, tod, res.Outcome)

			// la fecha de hoy se cierra recién mañana
			if date.Before(env.clk.Today()) {
				f, err := env.app.Adherence.Rollover(cmd.Context(), elderID, date)
				if err != nil {
					return fmt.Errorf("re-close %s: %w", date, err)
				}
				fmt.Printf("Adherence %s: %d/%d confirmed\n", date, f.Confirmed, f.Expected)
			}
			return nil
		},
	}
	cmd.Flags().String("elder", "", "Elder ID")
	cmd.Flags().String("medication", "", "Medication ID")
	cmd.Flags().String("date", "", "Dose date (YYYY-MM-DD)")
	cmd.Flags().String("time", "", "Dose time of day (HH:MM)")
	cmd.Flags().String("actor", "admin-cli", "Actor recorded on the confirmation")
	_ = cmd.MarkFlagRequired("elder")
	_ = cmd.MarkFlagRequired("medication")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

// poolOptions deja margen para los workers del rollover.
func poolOptions(cfg *config.Config) pg.PoolOptions {
	open := max(cfg.DBMaxOpenConns, cfg.RolloverWorkers+2)
	return pg.PoolOptions{MaxOpenConns: open, MaxIdleConns: cfg.DBMaxIdleConns}
}

type environment struct {
	cfg *config.Config
	log *logger.ZeroLogger
	clk *clock.Clock
	db  *sql.DB
	app *router.App

	closers []func()
}

func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// bootstrap arma config, logger, reloj y adaptadores opcionales.
func bootstrap(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	env := &environment{cfg: cfg, log: log, clk: clock.New(cfg.Location())}

	opts := router.Options{
		Clock:          env.clk,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		RiskWindow:     cfg.RiskWindow(),
	}

	if cfg.DBDSN != "" {
		db, err := pg.Open(ctx, cfg.DBDSN, poolOptions(cfg))
		if err != nil {
			return nil, err
		}
		env.db = db
		env.closers = append(env.closers, func() { _ = db.Close() })
		opts.DB = db
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	if cfg.JWTSecret != "" {
		opts.AuthVerifier = jwtauth.New(jwtauth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	} else {
		log.Warn("JWT_SECRET not set, accepting debug headers", nil)
	}

	if cfg.RedisAddr != "" {
		rdb, err := redislock.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			env.close()
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = rdb.Close() })
		opts.Locker = redislock.New(rdb, 30*time.Second)
	}

	env.app = router.New(opts)
	return env, nil
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	cfg, log := env.cfg, env.log

	if env.db != nil && cfg.IsDev() {
		if err := pg.Migrate(ctx, env.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	runner := adherence.NewRunner(env.app.Adherence, env.app.Medications, log, adherence.RunnerOptions{
		Interval:     cfg.RolloverInterval,
		LookbackDays: cfg.RolloverLookbackDays,
		Workers:      cfg.RolloverWorkers,
	})
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		runner.Start(ctx)
	}()
	// env.close corre después: rollover y consumidor ya terminaron
	defer func() {
		stop()
		workers.Wait()
		log.Info("background workers stopped", nil)
	}()

	if len(cfg.KafkaBrokers) > 0 {
		reader := kafka.NewReader(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})

		// Run cierra el reader al salir
		consumer := kafka.NewConsumer(reader, env.app.Readings, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := consumer.Run(ctx); err != nil {
				log.Error("readings consumer stopped", map[string]any{"error": err.Error()})
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      env.app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "timezone": env.clk.Location().String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped", nil)
	return nil
}

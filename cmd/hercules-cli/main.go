// Command hercules-cli runs maintenance tasks against the Hercules database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/internal/app"
	"github.com/pjecz/hercules/internal/seed"
	"github.com/pjecz/hercules/internal/service"
	"github.com/pjecz/hercules/pkg/config"
	"github.com/pjecz/hercules/pkg/database"
	"github.com/pjecz/hercules/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is loaded once before any subcommand runs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func rootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:           "hercules-cli",
		Short:         "Hercules maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			l, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.logger = cfg, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	cmd.AddCommand(migrarCmd(e), semillasCmd(e), adjuntosCmd(e), exhExternosCmd(e))
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (e *env) withDB(fn func(db *sqlx.DB) error) error {
	db, err := database.NewPostgres(context.Background(), e.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func (e *env) withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signalContext()
	defer cancel()
	a, err := app.New(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func migrarCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrar",
		Short: "Apply the pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDB(func(db *sqlx.DB) error {
				return database.Migrate(db, e.logger)
			})
		},
	}
}

func semillasCmd(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "semillas",
		Short: "Load or dump the base catalogs as CSV",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "seed", "Directory holding one CSV per table")

	cmd.AddCommand(&cobra.Command{
		Use:   "alimentar",
		Short: "Migrate and load the CSV catalogs into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.cfg.AllowsDestructive() {
				return fmt.Errorf("alimentar is not allowed when ENTORNO_IMPLEMENTACION is %s", config.EntornoProduccion)
			}
			ctx, cancel := signalContext()
			defer cancel()
			return e.withDB(func(db *sqlx.DB) error {
				if err := database.Migrate(db, e.logger); err != nil {
					return err
				}
				return seed.NewSeeder(db, e.logger).Load(ctx, dir)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "respaldar",
		Short: "Dump the catalogs to CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return e.withDB(func(db *sqlx.DB) error {
				return seed.NewSeeder(db, e.logger).Dump(ctx, dir)
			})
		},
	})
	return cmd
}

func adjuntosCmd(e *env) *cobra.Command {
	var horas int
	cmd := &cobra.Command{
		Use:   "adjuntos",
		Short: "Attachment maintenance",
	}
	depurar := &cobra.Command{
		Use:   "depurar",
		Short: "Soft delete reservations that never received their file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(func(ctx context.Context, a *app.App) error {
				age := e.cfg.Tasks.SweepMaxAge
				if horas > 0 {
					age = time.Duration(horas) * time.Hour
				}
				for _, flow := range []*service.AttachmentFlow{a.SoportesAdjuntos, a.ExhortosArchivos, a.RespuestasArchivos} {
					n, err := flow.Sweep(ctx, age)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", flow.Family().Module, n)
				}
				return nil
			})
		},
	}
	depurar.Flags().IntVar(&horas, "horas", 0, "Age in hours, defaults to ADJUNTOS_SWEEP_MAX_AGE")
	cmd.AddCommand(depurar)
	return cmd
}

func exhExternosCmd(e *env) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "exh-externos",
		Short: "Peer jurisdiction maintenance",
	}
	probar := &cobra.Command{
		Use:   "probar",
		Short: "Refresh the materias of one or every active peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(func(ctx context.Context, a *app.App) error {
				summary, err := a.Externos.ProbeAll(ctx, id, nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary.Message())
				return nil
			})
		},
	}
	probar.Flags().Int64Var(&id, "id", 0, "Probe only this exh_externo_id")
	cmd.AddCommand(probar)
	return cmd
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eyetracktask/eyetrack/internal/adapters/repository"
	"github.com/eyetracktask/eyetrack/internal/application/services"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/database"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/server"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

const shutdownTimeout = 15 * time.Second

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the EyeTrack API server",
		Long:  "Start the backend: JSON API, session-protected pages, file bucket, health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error {
				changed, err := m.Up()
				if err != nil {
					return err
				}
				printMigrationResult(cmd, "up", changed)
				return nil
			})
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(cmd, func(m *database.Migrator) error {
				changed, err := m.Down(steps)
				if err != nil {
					return err
				}
				printMigrationResult(cmd, "down", changed)
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 0, "number of migrations to revert (0 reverts all)")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
				fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create and confirm accounts without going through the e-mail link",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			confirm, _ := cmd.Flags().GetBool("confirm")
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}
			return withAuth(cmd, func(ctx context.Context, auth *services.AuthService, users ports.UserRepository) error {
				user, err := auth.SignUp(ctx, ports.SignUpRequest{Email: email, Password: password})
				if err != nil {
					return err
				}
				if confirm {
					if user, err = auth.ConfirmUser(ctx, user.ID); err != nil {
						return err
					}
				}
				printUser(cmd, user)
				return nil
			})
		},
	}
	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	createUserCmd.Flags().Bool("confirm", false, "Confirm the account immediately")

	confirmUserCmd := &cobra.Command{
		Use:   "confirm EMAIL",
		Short: "Confirm an account and seed its profile and first project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd, func(ctx context.Context, auth *services.AuthService, users ports.UserRepository) error {
				user, err := users.GetByEmail(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get user: %w", err)
				}
				if user, err = auth.ConfirmUser(ctx, user.ID); err != nil {
					return err
				}
				printUser(cmd, user)
				return nil
			})
		},
	}

	userCmd.AddCommand(createUserCmd, confirmUserCmd)
	return userCmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Errorw("Failed to connect to database", "error", err)
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := server.Build(ctx, cfg, db, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to wire services", "error", err)
		return err
	}
	defer cleanup()

	srv, err := server.New(cfg, deps, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	appLogger.Infow("Starting EyeTrack API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}

func withMigrator(cmd *cobra.Command, fn func(m *database.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.NewMigrator(repository.Migrations, repository.MigrationsDir)
	if err != nil {
		return err
	}
	return fn(m)
}

func printMigrationResult(cmd *cobra.Command, direction string, changed bool) {
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
}

func withAuth(cmd *cobra.Command, fn func(ctx context.Context, auth *services.AuthService, users ports.UserRepository) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	db, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repository.NewUserRepository(db.DB)
	auth := services.NewAuthService(
		users,
		repository.NewAuthRepository(db.DB),
		repository.NewProfileRepository(db.DB),
		repository.NewProjectRepository(db.DB),
		services.NewLogMailer(appLogger.WithComponent("mailer")),
		cfg.JWT, cfg.App.SiteURL, appLogger.WithComponent("auth"),
	)
	return fn(cmd.Context(), auth, users)
}

func printUser(cmd *cobra.Command, user *entities.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:\n")
	fmt.Fprintf(out, "  ID: %s\n", user.ID)
	fmt.Fprintf(out, "  Email: %s\n", user.Email)
	fmt.Fprintf(out, "  Confirmed: %t\n", user.IsConfirmed())
}

package system

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/counsel_backend/config"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	"github.com/Alijeyrad/counsel_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed authorization policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandTimeout(cmd, cfg)
			defer cancel()

			fmt.Println("Running migrations for the main database.")
			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer drv.Close()

			if err := database.Migrate(ctx, drv.DB()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Println("Seeding policies in the casbin database.")
			if err := seedPolicies(ctx, cfg); err != nil {
				return err
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	cmd.AddCommand(newRollbackCommand())
	cmd.AddCommand(newStatusCommand())

	return cmd
}

func newRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandTimeout(cmd, cfg)
			defer cancel()

			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer drv.Close()

			if err := database.Rollback(ctx, drv.DB()); err != nil {
				return err
			}
			fmt.Println("Rolled back one migration.")
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandTimeout(cmd, cfg)
			defer cancel()

			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer drv.Close()

			return database.MigrationStatus(ctx, drv.DB())
		},
	}
}

func NewSeedPoliciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-policies",
		Short: "Seed the default casbin policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandTimeout(cmd, cfg)
			defer cancel()

			if err := seedPolicies(ctx, cfg); err != nil {
				return err
			}
			fmt.Println("Policies seeded.")
			return nil
		},
	}
}

func seedPolicies(ctx context.Context, cfg *config.Config) error {
	enforcer, cleanup, err := authorize.NewEnforcer(database.NewDSN(cfg.CasbinDatabase), false)
	if err != nil {
		return fmt.Errorf("failed to create enforcer: %w", err)
	}
	defer cleanup(context.Background())

	auth, err := authorize.NewAuthorization(enforcer)
	if err != nil {
		return fmt.Errorf("failed to create authorization: %w", err)
	}

	slog.Info("seeding casbin policies")
	if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
		return fmt.Errorf("failed to seed policies: %w", err)
	}
	return nil
}

func commandTimeout(cmd *cobra.Command, cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

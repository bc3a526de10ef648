package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/migrate"
	"storefront/internal/seed"
	customersvc "storefront/internal/service/customer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Load demo data for the storefront",
		SilenceUsage: true,
	}
	root.AddCommand(newDemoCmd(), newHashCmd())
	return root
}

func newDemoCmd() *cobra.Command {
	opts := seed.Options{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create a demo customer and some orders for it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}).Named("seed")
			defer func() { _ = log.Sync() }()

			ctx := context.Background()
			pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns}, log)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer pool.Close()

			if err := migrate.Apply(ctx, pool, log); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			opts.TaxRate = cfg.TaxRate
			userID, err := seed.Apply(ctx, pool, opts, log)
			if err != nil {
				return err
			}
			log.Info("seed applied", zap.String("user_id", userID))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Email, "email", "demo@example.com", "account email")
	f.StringVar(&opts.Password, "password", "DemoPass1", "account password")
	f.StringVar(&opts.FirstName, "first-name", "Demo", "account first name")
	f.StringVar(&opts.LastName, "last-name", "Customer", "account last name")
	f.IntVar(&opts.Orders, "orders", 3, "number of demo orders to store in the order API table")
	return cmd
}

// newHashCmd prints a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := customersvc.HashPassword(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

// Command storectl runs operational tasks against the storefront database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"furnistore/internal/auth"
	"furnistore/internal/config"
	"furnistore/internal/database"
	"furnistore/internal/database/migration"
	"furnistore/internal/model"
	"furnistore/internal/repository/postgres"
	"furnistore/internal/seed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newRootCmd(config.Load()), os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:          "storectl",
		Short:        "Operational tasks for the furniture storefront",
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(cfg), newSeedCmd(cfg), newTokenCmd(cfg))
	return root
}

func openDB(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return migration.EnsureMigrated(cmd.Context(), db, cfg.Location(), cfg.Database.Host)
		},
	}
}

func newSeedCmd(cfg *config.AppConfig) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert products from a YAML catalog, skipping slugs that already exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			products, err := seed.Load(f, cfg.MinIO.PublicBaseURL)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migration.EnsureMigrated(ctx, db, cfg.Location(), cfg.Database.Host); err != nil {
				return err
			}
			res, err := seed.Apply(ctx, postgres.NewProductPostgres(db), products, cfg.Location())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog file")
	return cmd
}

func newTokenCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		sub, email, role string
		ttl              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := model.Role(role)
			if r != model.RoleCustomer && r != model.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", model.RoleCustomer, model.RoleAdmin)
			}
			m, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			if err != nil {
				return err
			}
			tok, err := m.Issue(sub, email, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(model.RoleCustomer), "customer or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

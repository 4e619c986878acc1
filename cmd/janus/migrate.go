package main

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/migrations"
)

func newMigrateCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones Postgres pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requiere storage.driver=postgres")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, `
				CREATE TABLE IF NOT EXISTS schema_migration (
					name       TEXT PRIMARY KEY,
					applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`); err != nil {
				return err
			}

			names, err := fs.Glob(migrations.PostgresFS, migrations.PostgresDir+"/*.sql")
			if err != nil {
				return err
			}
			sort.Strings(names)

			for _, name := range names {
				var done bool
				if err := pool.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM schema_migration WHERE name = $1)`, name,
				).Scan(&done); err != nil {
					return err
				}
				if done {
					continue
				}
				sql, err := fs.ReadFile(migrations.PostgresFS, name)
				if err != nil {
					return err
				}
				tx, err := pool.Begin(ctx)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(ctx, string(sql)); err != nil {
					_ = tx.Rollback(ctx)
					return fmt.Errorf("migrate %s: %w", name, err)
				}
				if _, err := tx.Exec(ctx, `INSERT INTO schema_migration (name) VALUES ($1)`, name); err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				if err := tx.Commit(ctx); err != nil {
					return err
				}
				fmt.Printf("applied %s\n", name)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"simulation-server/internal/database"
	"simulation-server/pkg/migration"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (default $DATABASE_URL)")

	cmd.AddCommand(
		newMigrateRunCmd("up", "Apply all pending migrations", cobra.NoArgs,
			func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Up(cmd.Context())
			}),
		newMigrateRunCmd("down", "Roll back all migrations", cobra.NoArgs,
			func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Down(cmd.Context())
			}),
		newMigrateRunCmd("steps <n>", "Apply (n > 0) or roll back (n < 0) n migrations", cobra.ExactArgs(1),
			func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("invalid step count '%s'", args[0])
				}
				return m.Steps(cmd.Context(), n)
			}),
		newMigrateRunCmd("force <version>", "Set the migration version without running migrations", cobra.ExactArgs(1),
			func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version '%s'", args[0])
				}
				return m.ForceVersion(cmd.Context(), uint(v))
			}),
		newMigrateRunCmd("version", "Print the current migration version", cobra.NoArgs,
			func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			}),
	)
	return cmd
}

type migrateFunc func(cmd *cobra.Command, m *migration.Migrator, args []string) error

func newMigrateRunCmd(use, short string, args cobra.PositionalArgs, fn migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := serviceLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pool, err := openPool(cmd, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := fn(cmd, database.NewMigrator(pool, logger), args); err != nil {
				return err
			}
			log := cliLogger(cmd)
			log.Info().Str("command", cmd.Name()).Msg("migrate command finished")
			return nil
		},
	}
}

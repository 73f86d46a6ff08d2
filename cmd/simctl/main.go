// Command simctl - утилита для авторов сценариев и операторов:
// проверка и прогон сценариев, импорт в PostgreSQL и миграции схемы.
package main

import (
	"fmt"
	"os"
	"time"

	sharedLogger "simulation-server/shared/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0-dev"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simctl",
		Short: "Career simulation scenario tooling",
		Long: `simctl validates and plays simulation scenarios locally,
imports them into PostgreSQL and manages the database schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newPlayCmd(),
		newImportCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simctl version %s\n", version)
		},
	}
}

// cliLogger возвращает консольный логгер, пишущий в stderr команды.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// serviceLogger создает zap-логгер для пакетов сервера (репозитории, мигратор).
func serviceLogger(cmd *cobra.Command) (*zap.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	return sharedLogger.New(sharedLogger.Config{
		Level:      levelName,
		Encoding:   "console",
		OutputPath: "stderr",
		Service:    "simctl",
	})
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

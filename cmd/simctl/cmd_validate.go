package main

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"simulation-server/internal/scenario"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type validationResult struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate every scenario file in a directory",
		Long: `Validate every scenario file (.json, .yaml, .yml) in a directory.

Examples:
  simctl validate                 # ./scenarios
  simctl validate ./content --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "./scenarios"
			if len(args) == 1 {
				dir = args[0]
			}
			workers, _ := cmd.Flags().GetInt("workers")
			log := cliLogger(cmd)

			results, err := validateDir(cmd.Context(), dir, workers)
			if err != nil {
				return err
			}

			invalid := 0
			for _, r := range results {
				if !r.Valid {
					invalid++
				}
			}

			if jsonOutput(cmd) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Valid {
						fmt.Fprintf(cmd.OutOrStdout(), "OK    %s\n", r.ID)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %s\n", r.ID, r.Error)
					}
				}
			}

			log.Info().Str("dir", dir).Int("total", len(results)).Int("invalid", invalid).Msg("validation finished")
			if invalid > 0 {
				return fmt.Errorf("%d of %d scenarios are invalid", invalid, len(results))
			}
			return nil
		},
	}

	cmd.Flags().Int("workers", runtime.NumCPU(), "Number of files parsed in parallel")
	return cmd
}

// validateDir разбирает все сценарии каталога параллельно.
// Результаты упорядочены по идентификатору сценария.
func validateDir(ctx context.Context, dir string, workers int) ([]validationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := scenario.NewFileLoader(dir, zap.NewNop())
	ids, err := loader.IDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	results := make([]validationResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = validationResult{ID: id, Valid: true}
			if _, err := loader.Load(gctx, id); err != nil {
				results[i] = validationResult{ID: id, Error: err.Error()}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

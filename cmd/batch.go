package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/meeting-agent/internal/agent"
)

var (
	batchOutDir      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Process multiple note files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAgent(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentNotes
		}

		if batchOutDir != "" {
			if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
				return eris.Wrap(err, "batch: create output dir")
			}
		}

		start := time.Now()
		completed, failed := runBatch(ctx, env, args, concurrency)

		zap.L().Info("batch complete",
			zap.Int64("completed", completed),
			zap.Int64("failed", failed),
			zap.Duration("elapsed", time.Since(start)))
		if failed > 0 {
			return eris.Errorf("batch: %d of %d notes failed", failed, len(args))
		}
		return nil
	},
}

// runBatch processes the note files with bounded concurrency and returns the
// completed and failed counts. The counters are atomic because workers run
// concurrently.
func runBatch(ctx context.Context, env *agentEnv, files []string, concurrency int) (completed, failed int64) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var done, errs atomic.Int64
	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := processOne(gctx, env, path); err != nil {
				zap.L().Error("note processing failed",
					zap.String("file", path),
					zap.Error(err))
				errs.Add(1)
				return nil // one bad note never aborts the batch
			}
			done.Add(1)
			return nil
		})
	}
	_ = g.Wait() // workers absorb their own errors

	return done.Load(), errs.Load()
}

func processOne(ctx context.Context, env *agentEnv, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}

	st, err := env.Agent.Run(ctx, string(data))
	if err != nil {
		return err
	}
	result := agent.BuildResult(st)

	outPath := resultPath(path)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", outPath)
	}

	zap.L().Info("note processed",
		zap.String("file", path),
		zap.String("run_id", result.RunID),
		zap.Int("actions", len(result.Plan)),
		zap.Int("needs_review", len(result.NeedsReview)))
	return nil
}

// resultPath places the result JSON next to the note, or under --out-dir.
func resultPath(notePath string) string {
	base := strings.TrimSuffix(filepath.Base(notePath), filepath.Ext(notePath)) + ".result.json"
	if batchOutDir != "" {
		return filepath.Join(batchOutDir, base)
	}
	return filepath.Join(filepath.Dir(notePath), base)
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for result files (default: next to each note)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent notes (default from config)")
	rootCmd.AddCommand(batchCmd)
}

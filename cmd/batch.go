package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Analyze every .txt resume in a directory and write JSON reports",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		batch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("concurrency", "c", 4, "number of resumes analyzed at the same time")
	batchCmd.Flags().StringP("out-dir", "o", "", "directory for reports (default is the input directory)")
	batchCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address while the batch runs, e.g. :9090")
}

func batch(cmd *cobra.Command, dir string) {
	ctx := context.Background()

	logger, config := setup()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	outDir, _ := cmd.Flags().GetString("out-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if outDir == "" {
		outDir = dir
	}

	files, err := listDocuments(dir)
	if err != nil {
		logger.Fatal("listing resumes", zap.String("dir", dir), zap.Error(err))
	}
	if len(files) == 0 {
		logger.Info("exiting", zap.String("reason", "no .txt files found"), zap.String("dir", dir))
		return
	}

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: c.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	if _, err := c.engine.Warmup(ctx); err != nil {
		logger.Warn("job index unavailable", zap.Error(err))
	}

	failed := analyzeAll(ctx, c, files, outDir, concurrency, config.Matching.MaxQueryChars, logger)

	logger.Info("batch completed",
		zap.Int("resumes", len(files)),
		zap.Int64("failed", failed),
		zap.String("out_dir", outDir),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

// analyzeAll analyzes files concurrently and returns how many failed. A failed
// resume does not stop the others.
func analyzeAll(ctx context.Context, c *components, files []string, outDir string, concurrency, limit int, logger *zap.Logger) int64 {
	if concurrency <= 0 {
		concurrency = 1
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, file := range files {
		g.Go(func() error {
			out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+".json")
			if err := analyzeFile(gctx, c, file, out, limit); err != nil {
				failed.Add(1)
				logger.Warn("resume analysis failed", zap.String("file", file), zap.Error(err))
				return nil
			}
			logger.Info("report written", zap.String("file", file), zap.String("report", out))
			return nil
		})
	}
	g.Wait()

	return failed.Load()
}

func analyzeFile(ctx context.Context, c *components, path, out string, limit int) error {
	text, err := readDocument(path, nil, limit)
	if err != nil {
		return err
	}

	report, err := c.service.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	return report.WriteFile(out)
}

func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prepforge/prepforge/internal/cache"
	"github.com/prepforge/prepforge/internal/model"
	"github.com/prepforge/prepforge/internal/pipeline"
)

// batchResult pairs one input problem with its outcome.
type batchResult struct {
	Index    int                    `json:"index"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Response *model.AnalyzeResponse `json:"response,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze a batch of problems from a JSON file",
	Long:  "Reads a JSON array of analyze requests, solves them concurrently, prints the results, and records the runs in one batch write.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		file, _ := cmd.Flags().GetString("file")
		defaultMode, _ := cmd.Flags().GetString("mode")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		output, _ := cmd.Flags().GetString("output")

		data, err := os.ReadFile(file)
		if err != nil {
			return eris.Wrap(err, "read batch file")
		}
		var reqs []model.AnalyzeRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return eris.Wrap(err, "parse batch file")
		}
		if len(reqs) == 0 {
			return eris.New("batch file contains no requests")
		}

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		// Per-request history writes are disabled here; the whole batch is
		// recorded in a single write at the end.
		assistant := pipeline.New(cfg, env.Generator, env.Reviewer, env.Cache, nil)

		results := make([]batchResult, len(reqs))
		recs := make([]model.AnalysisRecord, len(reqs))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := range reqs {
			i := i
			g.Go(func() error {
				req := reqs[i]
				applyDefaultMode(&req, defaultMode)
				if err := req.Validate(); err != nil {
					mu.Lock()
					results[i] = batchResult{Index: i, Error: err.Error()}
					recs[i] = failedRecord(req)
					mu.Unlock()
					return nil
				}

				resp, err := assistant.Analyze(gctx, &req)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					zap.L().Warn("batch: analyze failed", zap.Int("index", i), zap.Error(err))
					results[i] = batchResult{Index: i, Error: err.Error()}
					recs[i] = failedRecord(req)
					return nil
				}
				results[i] = batchResult{Index: i, Success: true, Response: resp}
				recs[i] = model.AnalysisRecord{
					ID:                 resp.Metadata.RequestID,
					Fingerprint:        cache.Key(req.ProblemText, string(req.Mode)),
					Mode:               req.Mode,
					Status:             model.AnalysisSucceeded,
					VerificationStatus: resp.Metadata.VerificationStatus,
					Cached:             resp.Metadata.Cached,
					LatencyMS:          resp.Metadata.LatencyMS,
					CostUSD:            resp.Metadata.CostEstimateUSD,
					CreatedAt:          time.Now().UTC(),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if n, err := env.Store.RecordBatch(ctx, recs); err != nil {
			zap.L().Warn("batch: record history", zap.Error(err))
		} else {
			zap.L().Info("batch: recorded runs", zap.Int64("count", n))
		}

		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal results")
		}
		if output != "" {
			return os.WriteFile(output, out, 0o644)
		}
		fmt.Println(string(out))
		return nil
	},
}

// applyDefaultMode fills the flag-provided mode into requests that left it
// unset. It runs before Normalize defaults unset modes to fast, so an
// explicit "fast" in the file is never promoted.
func applyDefaultMode(req *model.AnalyzeRequest, defaultMode string) {
	if req.Mode == "" && defaultMode != "" {
		req.Mode = model.Mode(defaultMode)
	}
	req.Normalize()
}

func failedRecord(req model.AnalyzeRequest) model.AnalysisRecord {
	return model.AnalysisRecord{
		ID:          uuid.NewString(),
		Fingerprint: cache.Key(req.ProblemText, string(req.Mode)),
		Mode:        req.Mode,
		Status:      model.AnalysisFailed,
		CreatedAt:   time.Now().UTC(),
	}
}

func init() {
	batchCmd.Flags().String("file", "", "JSON file with an array of analyze requests")
	batchCmd.Flags().String("mode", "", "mode applied to requests that do not set one")
	batchCmd.Flags().Int("concurrency", 0, "max concurrent analyses (default from config)")
	batchCmd.Flags().String("output", "", "write results to a file instead of stdout")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

package capsule_analyzer

import (
	"context"
	"runtime"
	"sync"

	"github.com/capscan/capscan/capsule_analyzer/models"
)

// DefaultEnrichConcurrency bounds concurrent provider calls across a batch.
const DefaultEnrichConcurrency = 3

// BatchStats summarizes a batch run.
type BatchStats struct {
	Analyzed int
	Enriched int
	Failed   int
}

// BatchResult aggregates a batch run. Failed items never abort the batch;
// each file succeeds or fails on its own.
type BatchResult struct {
	Capsules []*models.Capsule
	Failed   []models.FailedFile
	Stats    BatchStats
}

// BatchRunner analyzes many files through two bounded tiers: a CPU-sized
// pool for base analysis and a smaller pool for enrichment calls.
type BatchRunner struct {
	orchestrator       *CapsuleAnalyzer
	analyzeConcurrency int
	enrichConcurrency  int
}

// NewBatchRunner creates a runner. Zero concurrency values pick defaults:
// half the CPUs (at least one) for analysis, three for enrichment.
func NewBatchRunner(orchestrator *CapsuleAnalyzer, analyzeConcurrency, enrichConcurrency int) *BatchRunner {
	if analyzeConcurrency <= 0 {
		analyzeConcurrency = runtime.NumCPU() / 2
		if analyzeConcurrency < 1 {
			analyzeConcurrency = 1
		}
	}
	if enrichConcurrency <= 0 {
		enrichConcurrency = DefaultEnrichConcurrency
	}
	return &BatchRunner{
		orchestrator:       orchestrator,
		analyzeConcurrency: analyzeConcurrency,
		enrichConcurrency:  enrichConcurrency,
	}
}

// RunMany analyzes every file and reports progress once per completed item,
// in completion order. Capsules come back in the input order with failed
// items omitted.
func (br *BatchRunner) RunMany(ctx context.Context, files []string, opts models.AnalyzeOptions, onProgress models.ProgressFunc) BatchResult {
	analyzePool := NewConcurrencyPool(br.analyzeConcurrency)
	enrichPool := NewConcurrencyPool(br.enrichConcurrency)

	var mu sync.Mutex
	capsules := make([]*models.Capsule, len(files))
	var completed []string
	var failed []models.FailedFile

	report := func(file string, capsule *models.Capsule, index int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, models.FailedFile{File: file, Err: err})
		} else {
			capsules[index] = capsule
			completed = append(completed, file)
		}
		if onProgress != nil {
			onProgress(models.Progress{
				Current:     len(completed) + len(failed),
				Total:       len(files),
				CurrentFile: file,
				Completed:   append([]string(nil), completed...),
				Failed:      append([]models.FailedFile(nil), failed...),
			})
		}
	}

	for i, file := range files {
		i, file := i, file
		analyzePool.Run(func() {
			if err := ctx.Err(); err != nil {
				report(file, nil, i, err)
				return
			}

			capsule, err := br.orchestrator.BaseAnalysis(file, opts)
			if err != nil {
				report(file, nil, i, err)
				return
			}

			if !opts.IncludeAI || capsule.IsEnriched() {
				report(file, capsule, i, nil)
				return
			}

			// Enrichment moves to its own tier so slow provider calls never
			// starve base analysis of the remaining files.
			enrichPool.Run(func() {
				enriched, _ := br.orchestrator.Enrich(ctx, capsule, opts)
				report(file, enriched, i, nil)
			})
		})
	}

	analyzePool.Drain()
	enrichPool.Drain()

	result := BatchResult{Failed: failed}
	for _, capsule := range capsules {
		if capsule != nil {
			result.Capsules = append(result.Capsules, capsule)
			if capsule.IsEnriched() {
				result.Stats.Enriched++
			}
		}
	}
	result.Stats.Analyzed = len(result.Capsules)
	result.Stats.Failed = len(result.Failed)
	return result
}

// AnalyzeAndEnhance runs the full pipeline over the files: base analysis in
// the first tier and enrichment in the second, regardless of opts.IncludeAI.
func (br *BatchRunner) AnalyzeAndEnhance(ctx context.Context, files []string, opts models.AnalyzeOptions, onProgress models.ProgressFunc) BatchResult {
	opts.IncludeAI = true
	return br.RunMany(ctx, files, opts, onProgress)
}

package capsule_analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A failing item must not take the rest of the batch down with it.
func TestBatchRunner_FailureIsolation(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &countingAnalyzer{}, nil)
	runner := NewBatchRunner(orchestrator, 4, 0)

	dir := t.TempDir()
	var files []string
	for i := 0; i < 9; i++ {
		files = append(files, writeTestFile(t, dir, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package f%d\n", i)))
	}
	files = append(files, filepath.Join(dir, "missing.go"))

	result := runner.RunMany(context.Background(), files, models.AnalyzeOptions{}, nil)

	assert.Len(t, result.Capsules, 9)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].File, "missing.go")
	assert.Equal(t, BatchStats{Analyzed: 9, Enriched: 0, Failed: 1}, result.Stats)
}

func TestBatchRunner_ProgressMonotonic(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &countingAnalyzer{}, nil)
	runner := NewBatchRunner(orchestrator, 2, 0)

	dir := t.TempDir()
	var files []string
	for i := 0; i < 6; i++ {
		files = append(files, writeTestFile(t, dir, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package f%d\n", i)))
	}

	var updates []models.Progress
	result := runner.RunMany(context.Background(), files, models.AnalyzeOptions{}, func(p models.Progress) {
		updates = append(updates, p)
	})

	require.Len(t, result.Capsules, 6)
	require.Len(t, updates, 6)
	for i, p := range updates {
		assert.Equal(t, i+1, p.Current)
		assert.Equal(t, 6, p.Total)
	}
	assert.Len(t, updates[5].Completed, 6)
}

// Identical content across the batch still means one analysis.
func TestBatchRunner_SharedContentAnalyzedOnce(t *testing.T) {
	analyzer := &countingAnalyzer{}
	orchestrator := newTestOrchestrator(t, analyzer, nil)
	// Sequential tier so the second file sees the first one's capsule.
	runner := NewBatchRunner(orchestrator, 1, 0)

	dir := t.TempDir()
	files := []string{
		writeTestFile(t, dir, "a.go", "package shared\n"),
		writeTestFile(t, dir, "b.go", "package shared\n"),
	}

	result := runner.RunMany(context.Background(), files, models.AnalyzeOptions{}, nil)

	require.Len(t, result.Capsules, 2)
	assert.Equal(t, int64(1), analyzer.calls.Load())
	assert.Equal(t, result.Capsules[0].ContentHash, result.Capsules[1].ContentHash)
}

func TestBatchRunner_EnrichmentRunsInSecondTier(t *testing.T) {
	provider := &fakeProvider{result: validResult()}
	orchestrator := newTestOrchestrator(t, &countingAnalyzer{}, provider)
	runner := NewBatchRunner(orchestrator, 2, 2)

	dir := t.TempDir()
	var files []string
	for i := 0; i < 4; i++ {
		files = append(files, writeTestFile(t, dir, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package f%d\n", i)))
	}

	result := runner.RunMany(context.Background(), files, models.AnalyzeOptions{IncludeAI: true}, nil)

	require.Len(t, result.Capsules, 4)
	for _, capsule := range result.Capsules {
		assert.True(t, capsule.IsEnriched())
	}
	assert.Equal(t, int64(4), provider.calls.Load())
	assert.Equal(t, 4, result.Stats.Enriched)
}

// AnalyzeAndEnhance runs the AI phase even when the options do not ask for it.
func TestBatchRunner_AnalyzeAndEnhance(t *testing.T) {
	provider := &fakeProvider{result: validResult()}
	orchestrator := newTestOrchestrator(t, &countingAnalyzer{}, provider)
	runner := NewBatchRunner(orchestrator, 2, 2)

	dir := t.TempDir()
	files := []string{writeTestFile(t, dir, "a.go", "package a\n")}

	result := runner.AnalyzeAndEnhance(context.Background(), files, models.AnalyzeOptions{}, nil)

	require.Len(t, result.Capsules, 1)
	assert.True(t, result.Capsules[0].IsEnriched())
	assert.Equal(t, int64(1), provider.calls.Load())
}

func TestBatchRunner_EmptyInput(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &countingAnalyzer{}, nil)
	runner := NewBatchRunner(orchestrator, 0, 0)

	result := runner.RunMany(context.Background(), nil, models.AnalyzeOptions{}, nil)

	assert.Empty(t, result.Capsules)
	assert.Empty(t, result.Failed)
}

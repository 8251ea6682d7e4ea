package capsule_analyzer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/capsule_analyzer/contracts"
	"github.com/capscan/capscan/capsule_analyzer/models"
	providers_contracts "github.com/capscan/capscan/providers/contracts"
	token_contracts "github.com/capscan/capscan/token_management/contracts"
	"github.com/pterm/pterm"
)

// DefaultEnrichTimeout bounds a single enrichment call including retries.
const DefaultEnrichTimeout = 30 * time.Second

// ProviderFactory creates the enrichment provider on first use, so runs
// without AI never touch provider configuration.
type ProviderFactory func() (providers_contracts.IEnrichmentProvider, error)

// CapsuleAnalyzer orchestrates the two analysis phases: deterministic base
// analysis against the cache, and best-effort AI enrichment on top.
type CapsuleAnalyzer struct {
	analyzer        contracts.IStaticAnalyzer
	cache           *CapsuleCache
	tokenManager    token_contracts.ITokenManagement
	providerFactory ProviderFactory
	retry           RetryPolicy
	enrichTimeout   time.Duration
	maxInputTokens  int

	providerOnce     sync.Once
	providerWarnOnce sync.Once
	provider         providers_contracts.IEnrichmentProvider
	providerErr      error
}

// CapsuleAnalyzerOptions wires the orchestrator's collaborators.
type CapsuleAnalyzerOptions struct {
	Analyzer        contracts.IStaticAnalyzer
	Cache           *CapsuleCache
	TokenManager    token_contracts.ITokenManagement
	ProviderFactory ProviderFactory
	Retry           RetryPolicy
	EnrichTimeout   time.Duration
	MaxInputTokens  int
}

// NewCapsuleAnalyzer initializes a new CapsuleAnalyzer. Cache and Analyzer
// are required; the rest have working defaults.
func NewCapsuleAnalyzer(opts CapsuleAnalyzerOptions) *CapsuleAnalyzer {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = DefaultEnrichTimeout
	}
	if opts.MaxInputTokens <= 0 {
		opts.MaxInputTokens = 100_000
	}
	return &CapsuleAnalyzer{
		analyzer:        opts.Analyzer,
		cache:           opts.Cache,
		tokenManager:    opts.TokenManager,
		providerFactory: opts.ProviderFactory,
		retry:           opts.Retry,
		enrichTimeout:   opts.EnrichTimeout,
		maxInputTokens:  opts.MaxInputTokens,
	}
}

// Cache exposes the underlying capsule cache for stats and reset commands.
func (ca *CapsuleAnalyzer) Cache() *CapsuleCache {
	return ca.cache
}

// BaseAnalysis reads the file, hashes its content and returns the capsule
// for that hash. The static analyzer runs only on a cache miss (or when
// Force is set), which is what makes repeated scans of unchanged trees
// near-free.
func (ca *CapsuleAnalyzer) BaseAnalysis(path string, opts models.AnalyzeOptions) (*models.Capsule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, analysis_errors.NewFileRead(path, err)
	}

	hash := HashContent(content)
	if !opts.Force {
		if capsule, ok := ca.cache.Get(hash); ok {
			capsule.Stale = false
			capsule.LastVerifiedAt = time.Now()
			return capsule, nil
		}
	}

	report, err := ca.analyzer.Analyze(path, content)
	if err != nil {
		return nil, analysis_errors.NewParse(path, err)
	}

	capsule := ca.assembleCapsule(path, hash, report, opts)
	ca.cache.Set(hash, capsule)
	return capsule, nil
}

func (ca *CapsuleAnalyzer) assembleCapsule(path, hash string, report *models.StructuralReport, opts models.AnalyzeOptions) *models.Capsule {
	language := report.Language
	if language == "" {
		language = "text"
	}

	capsule := &models.Capsule{
		Version:         models.CapsuleVersion,
		ContentHash:     hash,
		File:            path,
		Language:        language,
		StructuralFacts: report.StructuralFacts,
		APISymbols:      report.APISymbols,
		Dependencies:    report.Dependencies,
		EvidenceIndex:   report.EvidenceIndex,
		LastVerifiedAt:  time.Now(),
	}

	if opts.DeepDeps {
		var exported []string
		for _, symbol := range report.APISymbols {
			if symbol.Exported {
				exported = append(exported, symbol.Name)
			}
		}
		capsule.InboundSample = ca.analyzer.SampleInboundRefs(path, exported)
	}

	return capsule
}

// Enrich runs the AI phase on top of a base capsule. Enrichment degrades:
// on any failure the original capsule is returned untouched together with
// the classified error, and the pipeline carries on. Only a success writes
// a new capsule back to the cache.
func (ca *CapsuleAnalyzer) Enrich(ctx context.Context, capsule *models.Capsule, opts models.AnalyzeOptions) (*models.Capsule, error) {
	if !opts.IncludeAI {
		return capsule, nil
	}

	provider, err := ca.enrichmentProvider()
	if err != nil {
		return capsule, err
	}

	input, err := ca.buildEnrichmentInput(capsule)
	if err != nil {
		pterm.Warning.Printf("enrichment skipped for %s: %v\n", capsule.File, err)
		return capsule, err
	}

	ctx, cancel := context.WithTimeout(ctx, ca.enrichTimeout)
	defer cancel()

	var result *models.EnrichmentResult
	err = ca.retry.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = provider.Enrich(ctx, *input)
		return attemptErr
	})
	if err != nil {
		classified := analysis_errors.Classify(err)
		pterm.Warning.Printf("enrichment failed for %s: %v\n", capsule.File, classified)
		if hint := analysis_errors.UserActionHint(classified); hint != "" {
			pterm.Info.Println(hint)
		}
		return capsule, classified
	}

	if err := result.Validate(); err != nil {
		classified := analysis_errors.NewEnrichmentInvalidResponse(err)
		pterm.Warning.Printf("enrichment failed for %s: %v\n", capsule.File, classified)
		return capsule, classified
	}

	enriched := capsule.Clone()
	enriched.NarrativeSummary = result.Summary
	enriched.Inferences = normalizeInferences(result.Inferences)
	enriched.Recommendations = result.Recommendations
	enriched.LastVerifiedAt = time.Now()

	ca.cache.Set(enriched.ContentHash, enriched)
	return enriched, nil
}

// AnalyzeAndEnrich runs both phases for one file. A base analysis failure
// propagates; an enrichment failure does not.
func (ca *CapsuleAnalyzer) AnalyzeAndEnrich(ctx context.Context, path string, opts models.AnalyzeOptions) (*models.Capsule, error) {
	capsule, err := ca.BaseAnalysis(path, opts)
	if err != nil {
		return nil, err
	}
	if !opts.IncludeAI || capsule.IsEnriched() {
		return capsule, nil
	}
	enriched, _ := ca.Enrich(ctx, capsule, opts)
	return enriched, nil
}

func (ca *CapsuleAnalyzer) enrichmentProvider() (providers_contracts.IEnrichmentProvider, error) {
	ca.providerOnce.Do(func() {
		if ca.providerFactory == nil {
			ca.providerErr = analysis_errors.NewConfig("no AI provider configured", nil)
			return
		}
		ca.provider, ca.providerErr = ca.providerFactory()
		if ca.providerErr != nil {
			ca.providerErr = analysis_errors.Classify(ca.providerErr)
		}
	})
	if ca.providerErr != nil {
		// Warned once per process, not once per file in the batch.
		ca.providerWarnOnce.Do(func() {
			pterm.Warning.Printf("enrichment unavailable: %v\n", ca.providerErr)
			if hint := analysis_errors.UserActionHint(ca.providerErr); hint != "" {
				pterm.Info.Println(hint)
			}
		})
		return nil, ca.providerErr
	}
	return ca.provider, nil
}

// buildEnrichmentInput re-reads the file so the provider sees the content the
// capsule was computed from. A changed or vanished file means the capsule no
// longer matches and enrichment would attach narrative to the wrong bytes.
func (ca *CapsuleAnalyzer) buildEnrichmentInput(capsule *models.Capsule) (*models.EnrichmentInput, error) {
	content, err := os.ReadFile(capsule.File)
	if err != nil {
		return nil, analysis_errors.NewFileRead(capsule.File, err)
	}
	if HashContent(content) != capsule.ContentHash {
		return nil, analysis_errors.NewParse(capsule.File, fmt.Errorf("content changed since base analysis"))
	}

	text := string(content)
	if ca.tokenManager != nil {
		text = ca.tokenManager.TruncateToTokens(text, ca.maxInputTokens)
	}

	return &models.EnrichmentInput{
		Language:          capsule.Language,
		FileName:          capsule.File,
		StructuralSummary: capsule.StructuralSummary(),
		Content:           text,
	}, nil
}

// normalizeInferences assigns sequential ids where the provider left them
// empty, so report references stay stable.
func normalizeInferences(inferences []models.Inference) []models.Inference {
	for i := range inferences {
		if inferences[i].ID == "" {
			inferences[i].ID = fmt.Sprintf("i%d", i+1)
		}
	}
	return inferences
}

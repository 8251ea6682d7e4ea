package models

import (
	"fmt"
	"strings"
	"time"
)

// CapsuleVersion tags serialized capsules for forward compatibility.
const CapsuleVersion = 1

// Evidence is a provenance pointer backing a fact, inference or
// recommendation: where in which file, and a hash of the cited snippet.
type Evidence struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	SnippetHash string `json:"snippet_hash"`
}

// StructuralFact is a deterministic statement derived purely from the file
// text, citing zero or more evidence ids.
type StructuralFact struct {
	Text     string   `json:"text"`
	Evidence []string `json:"evidence,omitempty"`
}

// APISymbol is an extracted symbol with its kind and provenance.
type APISymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature,omitempty"`
	Exported  bool   `json:"exported"`
	Evidence  string `json:"evidence,omitempty"`
}

// DependencyRef is an outbound module reference with its occurrence count.
type DependencyRef struct {
	Module   string `json:"module"`
	Count    int    `json:"count"`
	Evidence string `json:"evidence,omitempty"`
}

// InboundRef is a best-effort sample of a file referencing this one.
// The sample is not exhaustive.
type InboundRef struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// Inference is a narrative observation produced by enrichment.
type Inference struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}

// Recommendation is an actionable suggestion produced by enrichment.
type Recommendation struct {
	Text     string `json:"text"`
	Reason   string `json:"reason,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Capsule is the cached analysis record for one unique file content.
// Identity is ContentHash; File is stored for display only, so two paths
// with byte-identical content share one capsule.
type Capsule struct {
	Version     int    `json:"version"`
	ContentHash string `json:"content_hash"`
	File        string `json:"file"`
	Language    string `json:"language"`

	// Structural portion: fully determined by ContentHash, immutable once
	// written for a given hash.
	StructuralFacts []StructuralFact    `json:"structural_facts"`
	APISymbols      []APISymbol         `json:"api_symbols"`
	Dependencies    []DependencyRef     `json:"dependencies"`
	InboundSample   []InboundRef        `json:"inbound_sample,omitempty"`
	EvidenceIndex   map[string]Evidence `json:"evidence_index"`

	// Narrative portion: empty until enrichment succeeds, then replaced as
	// a whole. Never partially merged.
	NarrativeSummary map[string]string `json:"narrative_summary,omitempty"`
	Inferences       []Inference       `json:"inferences,omitempty"`
	Recommendations  []Recommendation  `json:"recommendations,omitempty"`

	Stale          bool      `json:"stale"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
}

// IsEnriched reports whether the narrative portion has been populated.
func (c *Capsule) IsEnriched() bool {
	return len(c.Inferences) > 0 || len(c.Recommendations) > 0 || len(c.NarrativeSummary) > 0
}

// Clone returns a deep copy. The cache hands out clones so callers never
// share mutable state with the stored representation.
func (c *Capsule) Clone() *Capsule {
	if c == nil {
		return nil
	}
	out := *c
	out.StructuralFacts = make([]StructuralFact, len(c.StructuralFacts))
	for i, f := range c.StructuralFacts {
		out.StructuralFacts[i] = f
		out.StructuralFacts[i].Evidence = append([]string(nil), f.Evidence...)
	}
	out.APISymbols = append([]APISymbol(nil), c.APISymbols...)
	out.Dependencies = append([]DependencyRef(nil), c.Dependencies...)
	out.InboundSample = append([]InboundRef(nil), c.InboundSample...)
	out.Inferences = append([]Inference(nil), c.Inferences...)
	out.Recommendations = append([]Recommendation(nil), c.Recommendations...)
	if c.EvidenceIndex != nil {
		out.EvidenceIndex = make(map[string]Evidence, len(c.EvidenceIndex))
		for k, v := range c.EvidenceIndex {
			out.EvidenceIndex[k] = v
		}
	}
	if c.NarrativeSummary != nil {
		out.NarrativeSummary = make(map[string]string, len(c.NarrativeSummary))
		for k, v := range c.NarrativeSummary {
			out.NarrativeSummary[k] = v
		}
	}
	return &out
}

// StructuralSummary renders the deterministic portion as text for the
// enrichment input.
func (c *Capsule) StructuralSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s (language: %s)\n", c.File, c.Language)
	for _, f := range c.StructuralFacts {
		fmt.Fprintf(&b, "- %s", f.Text)
		if len(f.Evidence) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(f.Evidence, ", "))
		}
		b.WriteString("\n")
	}
	if len(c.APISymbols) > 0 {
		b.WriteString("Symbols:\n")
		for _, s := range c.APISymbols {
			fmt.Fprintf(&b, "- %s %s", s.Kind, s.Name)
			if s.Exported {
				b.WriteString(" (exported)")
			}
			if s.Evidence != "" {
				fmt.Fprintf(&b, " [%s]", s.Evidence)
			}
			b.WriteString("\n")
		}
	}
	if len(c.Dependencies) > 0 {
		b.WriteString("Dependencies:\n")
		for _, d := range c.Dependencies {
			fmt.Fprintf(&b, "- %s (x%d)", d.Module, d.Count)
			if d.Evidence != "" {
				fmt.Fprintf(&b, " [%s]", d.Evidence)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// StructuralReport is the static analyzer's output for one file content.
type StructuralReport struct {
	Language        string
	StructuralFacts []StructuralFact
	APISymbols      []APISymbol
	Dependencies    []DependencyRef
	InboundSample   []InboundRef
	EvidenceIndex   map[string]Evidence
}

// EnrichmentInput is what the enrichment provider receives.
type EnrichmentInput struct {
	Language          string `json:"language"`
	FileName          string `json:"file_name"`
	StructuralSummary string `json:"structural_summary"`
	Content           string `json:"content"`
}

// EnrichmentResult is the narrative portion returned by a provider.
type EnrichmentResult struct {
	Summary         map[string]string `json:"summary"`
	Inferences      []Inference       `json:"inferences"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// Validate checks the schema constraints on a provider response so that a
// malformed response is rejected before it can reach the cache.
func (r *EnrichmentResult) Validate() error {
	if r == nil {
		return fmt.Errorf("empty result")
	}
	if len(r.Summary) == 0 {
		return fmt.Errorf("missing summary")
	}
	for locale, text := range r.Summary {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty summary for locale %q", locale)
		}
	}
	for i, inf := range r.Inferences {
		if strings.TrimSpace(inf.Text) == "" {
			return fmt.Errorf("inference %d has empty text", i)
		}
		if inf.Confidence < 0 || inf.Confidence > 1 {
			return fmt.Errorf("inference %d has confidence %v outside [0,1]", i, inf.Confidence)
		}
	}
	for i, rec := range r.Recommendations {
		if strings.TrimSpace(rec.Text) == "" {
			return fmt.Errorf("recommendation %d has empty text", i)
		}
	}
	return nil
}

// AnalyzeOptions controls a single orchestrator run.
type AnalyzeOptions struct {
	// Force bypasses the cache read; the result is still written back.
	Force bool
	// IncludeAI allows the enrichment phase to run at all.
	IncludeAI bool
	// DeepDeps enables the best-effort inbound reference sample.
	DeepDeps bool
}

// Progress is reported once per completed batch item, in completion order.
type Progress struct {
	Current     int
	Total       int
	CurrentFile string
	Completed   []string
	Failed      []FailedFile
}

// ProgressFunc receives batch progress updates.
type ProgressFunc func(Progress)

// FailedFile pairs a batch item with the error that failed it.
type FailedFile struct {
	File string
	Err  error
}

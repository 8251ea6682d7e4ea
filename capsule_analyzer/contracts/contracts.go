package contracts

import (
	"github.com/capscan/capscan/capsule_analyzer/models"
)

// IStaticAnalyzer defines the interface for deterministic structural
// analysis of a single file content.
type IStaticAnalyzer interface {
	// Analyze extracts the structural report from content. The path is used
	// for language detection and evidence display only; identical content
	// yields an identical report regardless of path.
	Analyze(path string, content []byte) (*models.StructuralReport, error)
	// SampleInboundRefs scans neighbouring files for references to the given
	// symbols. Best effort and bounded; an empty sample is not an error.
	SampleInboundRefs(path string, symbols []string) []models.InboundRef
}

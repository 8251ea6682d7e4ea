package contracts

import (
	"context"

	"github.com/capscan/capscan/capsule_analyzer/models"
)

// IEnrichmentProvider defines the interface for AI providers that turn a
// structural report into narrative insight.
type IEnrichmentProvider interface {
	// Enrich sends the input to the provider and returns a validated result.
	// Failures come back classified so the caller can decide on retries.
	Enrich(ctx context.Context, input models.EnrichmentInput) (*models.EnrichmentResult, error)
	// Name identifies the provider in logs and reports.
	Name() string
}

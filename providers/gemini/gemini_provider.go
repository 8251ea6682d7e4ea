package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/embed_data"
	"github.com/capscan/capscan/providers/contracts"
	token_contracts "github.com/capscan/capscan/token_management/contracts"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// GeminiConfig implements the enrichment provider against the Gemini API.
type GeminiConfig struct {
	Model           string
	ApiKey          string
	Temperature     *float32
	TokenManagement token_contracts.ITokenManagement

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

// NewGeminiEnrichmentProvider initializes a new Gemini provider.
func NewGeminiEnrichmentProvider(config *GeminiConfig) contracts.IEnrichmentProvider {
	if config.Model == "" {
		config.Model = defaultModel
	}
	return config
}

func (geminiProvider *GeminiConfig) Name() string {
	return "gemini"
}

func (geminiProvider *GeminiConfig) getClient(ctx context.Context) (*genai.Client, error) {
	geminiProvider.clientOnce.Do(func() {
		geminiProvider.client, geminiProvider.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  geminiProvider.ApiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if geminiProvider.clientErr != nil {
		return nil, analysis_errors.NewEnrichmentAuthFailed(geminiProvider.clientErr)
	}
	return geminiProvider.client, nil
}

// Enrich sends the structural summary and content to the model and parses
// the JSON result.
func (geminiProvider *GeminiConfig) Enrich(ctx context.Context, input models.EnrichmentInput) (*models.EnrichmentResult, error) {
	client, err := geminiProvider.getClient(ctx)
	if err != nil {
		return nil, err
	}

	userInput, err := json.Marshal(input)
	if err != nil {
		return nil, analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("error marshalling input: %w", err))
	}
	full := string(embed_data.EnrichmentPrompt) + "\n\n" + string(userInput)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if geminiProvider.Temperature != nil {
		config.Temperature = geminiProvider.Temperature
	}

	resp, err := client.Models.GenerateContent(ctx, geminiProvider.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}}, config)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(fmt.Errorf("response contains no candidates"))
	}

	if resp.UsageMetadata != nil && geminiProvider.TokenManagement != nil {
		geminiProvider.TokenManagement.UsedTokens(
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
		)
	}

	var result models.EnrichmentResult
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(fmt.Errorf("error parsing result JSON: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(err)
	}

	return &result, nil
}

// classifyGeminiError maps SDK errors onto the taxonomy by message, since
// the SDK does not expose status codes uniformly.
func classifyGeminiError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission"):
		return analysis_errors.NewEnrichmentAuthFailed(err)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429"):
		return analysis_errors.NewEnrichmentRateLimited(err)
	case strings.Contains(msg, "deadline"):
		return analysis_errors.NewEnrichmentTimeout(err)
	default:
		return analysis_errors.Classify(err)
	}
}

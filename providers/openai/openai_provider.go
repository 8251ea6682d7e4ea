package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/embed_data"
	"github.com/capscan/capscan/providers/contracts"
	token_contracts "github.com/capscan/capscan/token_management/contracts"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	// Error bodies get truncated before they reach logs.
	maxErrorBodyBytes = 2048
)

// OpenAIConfig implements the enrichment provider against the OpenAI chat
// completions API (and compatible endpoints).
type OpenAIConfig struct {
	BaseURL         string
	Model           string
	ApiKey          string
	Temperature     *float32
	MaxTokens       int
	TokenManagement token_contracts.ITokenManagement
}

// NewOpenAIEnrichmentProvider initializes a new OpenAI provider.
func NewOpenAIEnrichmentProvider(config *OpenAIConfig) contracts.IEnrichmentProvider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return config
}

func (openAIProvider *OpenAIConfig) Name() string {
	return "openai"
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Enrich sends the structural summary and content to the model and parses
// the JSON result. Failures come back classified by HTTP status so the
// retry policy can tell transient from terminal.
func (openAIProvider *OpenAIConfig) Enrich(ctx context.Context, input models.EnrichmentInput) (*models.EnrichmentResult, error) {
	if openAIProvider.ApiKey == "" {
		return nil, analysis_errors.NewEnrichmentAuthFailed(fmt.Errorf("no API key configured"))
	}

	userInput, err := json.Marshal(input)
	if err != nil {
		return nil, analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("error marshalling input: %w", err))
	}

	reqBody := chatCompletionRequest{
		Model: openAIProvider.Model,
		Messages: []chatMessage{
			{Role: "system", Content: string(embed_data.EnrichmentPrompt)},
			{Role: "user", Content: string(userInput)},
		},
		Temperature:    openAIProvider.Temperature,
		MaxTokens:      openAIProvider.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("error marshalling request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", openAIProvider.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+openAIProvider.ApiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, analysis_errors.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("error reading response: %w", err))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(fmt.Errorf("error parsing response: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(fmt.Errorf("response contains no choices"))
	}

	if completion.Usage.PromptTokens > 0 && openAIProvider.TokenManagement != nil {
		openAIProvider.TokenManagement.UsedTokens(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}

	var result models.EnrichmentResult
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(fmt.Errorf("error parsing result JSON: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, analysis_errors.NewEnrichmentInvalidResponse(err)
	}

	return &result, nil
}

// classifyStatus maps HTTP status codes onto the error taxonomy.
func classifyStatus(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	cause := fmt.Errorf("API request failed with status code '%d' - %s", status, strings.TrimSpace(string(raw)))

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return analysis_errors.NewEnrichmentAuthFailed(cause)
	case status == http.StatusTooManyRequests:
		return analysis_errors.NewEnrichmentRateLimited(cause)
	case status == http.StatusRequestTimeout:
		return analysis_errors.NewEnrichmentTimeout(cause)
	case status >= 500:
		return analysis_errors.NewEnrichmentRequestFailed(cause)
	default:
		// Remaining 4xx codes are request shaping problems a retry will not fix.
		return &analysis_errors.AnalysisError{
			Kind:     analysis_errors.KindEnrichmentRequestFailed,
			Severity: analysis_errors.SeverityError,
			Message:  "enrichment request rejected",
			Err:      cause,
		}
	}
}

package token_management

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/embed_data"
	"github.com/capscan/capscan/token_management/contracts"
)

// TokenManager implementation
type tokenManager struct {
	mu              sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

type details struct {
	MaxTokens                  int     `json:"max_tokens"`
	MaxInputTokens             int     `json:"max_input_tokens"`
	MaxOutputTokens            int     `json:"max_output_tokens"`
	InputCostPerMillionTokens  float64 `json:"input_cost_per_million_tokens,omitempty"`
	OutputCostPerMillionTokens float64 `json:"output_cost_per_million_tokens,omitempty"`
	Mode                       string  `json:"mode"`
}

type Models struct {
	ModelDetails map[string]details `json:"models"`
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

// CountTokens estimates the token count of a text. The four-characters-per-
// token heuristic matches what chat models average on source code closely
// enough for budgeting.
func (tm *tokenManager) CountTokens(text string) int {
	return (len(text) + 3) / 4
}

// TruncateToTokens cuts text down to the given token budget, keeping the
// head of the file where declarations and imports live.
func (tm *tokenManager) TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 || tm.CountTokens(text) <= maxTokens {
		return text
	}
	maxBytes := maxTokens * 4
	if maxBytes >= len(text) {
		return text
	}
	truncated := text[:maxBytes]
	// Cut at a line boundary so the model never sees a half statement.
	if idx := strings.LastIndexByte(truncated, '\n'); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "\n... (truncated)"
}

func (tm *tokenManager) DisplayTokens(providerName string, model string) {
	total, input, output := tm.GetCurrentTokenUsage()
	cost := tm.CalculateCost(providerName, model, input, output)

	tokenInfo := fmt.Sprintf("Token Used: %d - Cost: %.6f $ - Model: %s", total, cost, model)
	fmt.Println(lipgloss.BoxStyle.Render(tokenInfo))
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}

func (tm *tokenManager) CalculateCost(providerName string, modelName string, inputToken int, outputToken int) float64 {
	modelDetails, err := getModelDetails(providerName, modelName)
	if err != nil {
		return 0
	}

	inputCost := float64(inputToken) * modelDetails.InputCostPerMillionTokens / 1000000.0
	outputCost := float64(outputToken) * modelDetails.OutputCostPerMillionTokens / 1000000.0

	return inputCost + outputCost
}

func getModelDetails(providerName string, modelName string) (details, error) {
	providerName = strings.ToLower(providerName)
	modelName = strings.ToLower(modelName)

	models := Models{
		ModelDetails: make(map[string]details),
	}

	err := json.Unmarshal(embed_data.ModelDetails, &models)
	if err != nil {
		log.Printf("Error unmarshaling JSON: %v", err)
		return details{}, err
	}

	model, exists := models.ModelDetails[modelName]
	if !exists {
		return details{}, fmt.Errorf("model details price with name '%s' not found for provider '%s'", modelName, providerName)
	}

	return model, nil
}

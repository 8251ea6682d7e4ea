package contracts

type ITokenManagement interface {
	UsedTokens(inputToken int, outputToken int)
	CountTokens(text string) int
	TruncateToTokens(text string, maxTokens int) string
	CalculateCost(providerName string, modelName string, inputToken int, outputToken int) float64
	DisplayTokens(providerName string, model string)
	GetCurrentTokenUsage() (total int, input int, output int)
	ClearToken()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/capscan/capscan/capsule_analyzer"
	"github.com/capscan/capscan/config"
	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/providers"
	providers_contracts "github.com/capscan/capscan/providers/contracts"
	"github.com/capscan/capscan/token_management"
	token_contracts "github.com/capscan/capscan/token_management/contracts"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootDependencies holds the wired collaborators shared by all subcommands.
type RootDependencies struct {
	Cwd             string
	Config          *config.Config
	TokenManagement token_contracts.ITokenManagement
	Cache           *capsule_analyzer.CapsuleCache
	Analyzer        *capsule_analyzer.CapsuleAnalyzer
}

// rootCmd: capscan
var rootCmd = &cobra.Command{
	Use:   "capscan",
	Short: "capscan analyzes source files into cached, evidence-backed capsules.",
	Long: `capscan reads source files, extracts structural facts with Tree-sitter and
stores the result as a capsule keyed by content hash. Unchanged files are
never re-analyzed. An optional AI enrichment phase adds a narrative summary,
inferences and recommendations on top of the deterministic facts.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(config.DefaultConfig.Version)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

// handleRootCommand loads configuration and wires the dependency graph for
// a subcommand run. The enrichment provider is created lazily, so runs
// without --enhance never need credentials.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	// Environment files are optional; a missing .env is not an error.
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error getting current directory: %v", err)))
		return nil
	}

	cfg := config.LoadConfigs(cmd.Root(), cwd)

	cache, err := capsule_analyzer.NewCapsuleCache(cfg.Cache.Dir, cfg.Cache.MemoryEntries)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error initializing cache: %v", err)))
		return nil
	}

	tokenManagement := token_management.NewTokenManager()

	providerFactory := func() (providers_contracts.IEnrichmentProvider, error) {
		return providers.EnrichmentProviderFactory(cfg.AIProviderConfig, tokenManagement)
	}

	analyzer := capsule_analyzer.NewCapsuleAnalyzer(capsule_analyzer.CapsuleAnalyzerOptions{
		Analyzer:        capsule_analyzer.NewStaticAnalyzer(),
		Cache:           cache,
		TokenManager:    tokenManagement,
		ProviderFactory: providerFactory,
		Retry: capsule_analyzer.RetryPolicy{
			MaxAttempts: cfg.Enrichment.MaxAttempts,
			BaseDelay:   cfg.Enrichment.BaseDelay,
			MaxDelay:    cfg.Enrichment.Timeout,
		},
		EnrichTimeout:  cfg.Enrichment.Timeout,
		MaxInputTokens: cfg.Enrichment.MaxInputTokens,
	})

	return &RootDependencies{
		Cwd:             cwd,
		Config:          cfg,
		TokenManagement: tokenManagement,
		Cache:           cache,
		Analyzer:        analyzer,
	}
}

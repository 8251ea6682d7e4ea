package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/capsule_analyzer"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// analyzeCmd: capscan analyze
var analyzeCmd = &cobra.Command{
	Use:   "analyze [files or directory]",
	Short: "Analyze source files into capsules, using the cache where possible.",
	Long: `The 'analyze' subcommand runs base analysis over the given files (or every
analyzable file under a directory) and stores one capsule per unique file
content. Files whose content is already cached are not re-analyzed. With
--enhance, the AI phase adds narrative insight on top; enrichment failures
degrade to the base capsule and never fail the run.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}

		enhance, _ := cmd.Flags().GetBool("enhance")
		force, _ := cmd.Flags().GetBool("force")
		deepDeps, _ := cmd.Flags().GetBool("deep-deps")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		handleAnalyzeCommand(rootDependencies, args, models.AnalyzeOptions{
			Force:     force,
			IncludeAI: enhance && rootDependencies.Config.Enrichment.Enabled,
			DeepDeps:  deepDeps || rootDependencies.Config.Analysis.DeepDeps,
		}, concurrency)
	},
}

func init() {
	analyzeCmd.Flags().BoolP("enhance", "e", false, "Run the AI enrichment phase after base analysis")
	analyzeCmd.Flags().BoolP("force", "f", false, "Re-analyze even when a capsule is cached")
	analyzeCmd.Flags().Bool("deep-deps", false, "Sample inbound references from neighbouring files")
	analyzeCmd.Flags().Int("concurrency", 0, "Number of files analyzed in parallel (0 = half the CPUs)")

	rootCmd.AddCommand(analyzeCmd)
}

func handleAnalyzeCommand(rootDependencies *RootDependencies, args []string, opts models.AnalyzeOptions, concurrency int) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	files, err := collectFiles(rootDependencies.Cwd, args)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}
	if len(files) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No analyzable files found."))
		return
	}

	runner := capsule_analyzer.NewBatchRunner(rootDependencies.Analyzer, concurrency, rootDependencies.Config.Enrichment.Concurrency)

	progressbar, _ := pterm.DefaultProgressbar.WithTotal(len(files)).WithTitle("Analyzing").Start()
	result := runner.RunMany(ctx, files, opts, func(p models.Progress) {
		progressbar.UpdateTitle(filepath.Base(p.CurrentFile))
		progressbar.Increment()
	})
	_, _ = progressbar.Stop()

	printBatchSummary(rootDependencies, result, opts)
}

func printBatchSummary(rootDependencies *RootDependencies, result capsule_analyzer.BatchResult, opts models.AnalyzeOptions) {
	stats := rootDependencies.Cache.Stats()
	summary := fmt.Sprintf("Analyzed: %d  Enriched: %d  Failed: %d  Cache hit rate: %.1f%%",
		result.Stats.Analyzed, result.Stats.Enriched, result.Stats.Failed, stats.HitRate())
	fmt.Println(lipgloss.BoxStyle.Render(summary))

	for _, failure := range result.Failed {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("✗ %s: %v", failure.File, failure.Err)))
		if hint := analysis_errors.UserActionHint(failure.Err); hint != "" {
			fmt.Println(lipgloss.Yellow.Render("  " + hint))
		}
	}

	if opts.IncludeAI {
		rootDependencies.TokenManagement.DisplayTokens(
			rootDependencies.Config.AIProviderConfig.Provider,
			rootDependencies.Config.AIProviderConfig.Model,
		)
	}
}

// collectFiles resolves the command arguments to a flat file list. A single
// directory argument (or no argument) walks the tree honoring the ignore
// rules; explicit file arguments are taken as-is.
func collectFiles(cwd string, args []string) ([]string, error) {
	if len(args) == 0 {
		return walkDirectory(cwd)
	}

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", args[0], err)
		}
		if info.IsDir() {
			return walkDirectory(args[0])
		}
	}

	return args, nil
}

func walkDirectory(root string) ([]string, error) {
	ignorePatterns, err := utils.GetIgnorePatterns(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relativePath = strings.ReplaceAll(relativePath, "\\", "/")

		if utils.IsDefaultIgnored(relativePath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if utils.IsIgnored(relativePath, ignorePatterns) {
			return nil
		}
		if !utils.IsAnalyzableFile(path) {
			return nil
		}

		// Generated bundles and vendored blobs routinely blow past this.
		info, err := d.Info()
		if err == nil && info.Size() > 1024*1024 {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

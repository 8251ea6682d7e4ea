package cmd

import (
	"fmt"
	"os"

	"github.com/capscan/capscan/capsule_analyzer"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/utils"
	"github.com/spf13/cobra"
)

// showCmd: capscan show
var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Render the cached capsule for a file.",
	Long: `The 'show' subcommand looks up the capsule for the file's current content
and renders it as a report: structural facts, API symbols, dependencies,
and, when enrichment has run, the narrative summary with inferences and
recommendations. A file with no cached capsule is analyzed first.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleShowCommand(rootDependencies, args[0])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func handleShowCommand(rootDependencies *RootDependencies, file string) {
	content, err := os.ReadFile(file)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading %s: %v", file, err)))
		return
	}

	hash := capsule_analyzer.HashContent(content)
	capsule, ok := rootDependencies.Cache.Get(hash)
	if !ok {
		var analyzeErr error
		capsule, analyzeErr = rootDependencies.Analyzer.BaseAnalysis(file, models.AnalyzeOptions{})
		if analyzeErr != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", analyzeErr)))
			return
		}
	}

	if err := utils.RenderCapsule(os.Stdout, capsule, rootDependencies.Config.Theme); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error rendering capsule: %v", err)))
	}
}

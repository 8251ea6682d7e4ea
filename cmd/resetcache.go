package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/capscan/capscan/constants/lipgloss"
	"github.com/capscan/capscan/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the capsule cache for capscan",
	Long: `The 'reset-cache' command removes every capsule from both cache tiers: the
in-memory LRU and the durable JSON files under the cache directory.
Use it to clear corrupted entries or to force a full re-analysis.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")

		handleResetCacheCommand(force, stats, cmd)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(force bool, showStats bool, cmd *cobra.Command) {
	rootDependencies := handleRootCommand(cmd)
	if rootDependencies == nil {
		return
	}

	if showStats {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		fmt.Printf("  Cache Directory: %s\n", rootDependencies.Cache.Dir())

		if files, size, err := rootDependencies.Cache.DiskUsage(); err == nil {
			fmt.Printf("  Cached Capsules: %d\n", files)
			fmt.Printf("  Total Size: %.2f MB\n", float64(size)/(1024*1024))
		} else {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not read cache directory: %v", err)))
		}

		stats := rootDependencies.Cache.Stats()
		fmt.Printf("  Memory Hits: %d  Disk Hits: %d  Misses: %d\n", stats.MemoryHits, stats.DiskHits, stats.Misses)
		fmt.Printf("  Hit Rate: %.1f%%\n", stats.HitRate())
		return
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		accepted, err := utils.ConfirmPrompt(reader, "Are you sure you want to reset the entire capsule cache?")
		if err != nil || !accepted {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Resetting capsule cache...")

	err := rootDependencies.Cache.Clear()
	if err != nil {
		spinnerInstance.Stop()
		fmt.Print("\r")
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error resetting cache: %v", err)))
		return
	}

	spinnerInstance.Stop()
	fmt.Print("\r")
	fmt.Println(lipgloss.Green.Render("✓ Capsule cache has been successfully reset!"))
}

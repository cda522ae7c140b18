package main

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	archivePath string
	configPath  string
	eventFormat string
	interval    time.Duration
	showChart   bool
	showMetrics bool
	showTable   bool
	streaming   bool
	valuesFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "algostep [command] (flags)",
	Short: "step-by-step algorithm visualizer",
	Long: `algostep plays sorts, graph traversals and binary search tree
algorithms one state at a time on the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		runCmd,
		replayCmd,
		historyCmd,
		algorithmsCmd,
		pseudocodeCmd,
	)

	for _, cmd := range []*cobra.Command{runCmd, replayCmd} {
		cmd.Flags().DurationVarP(
			&interval, "interval", "i", 0, "delay between steps (0 uses the config or default)")
		cmd.Flags().StringVar(
			&eventFormat, "events", "none", "playback event log on stderr: none, text or json")
		cmd.Flags().BoolVar(
			&showMetrics, "metrics", false, "print playback metrics when the run ends")
		cmd.Flags().BoolVar(
			&showChart, "chart", false, "plot the final array (sorts only)")
	}
	for _, cmd := range []*cobra.Command{runCmd, replayCmd, historyCmd} {
		cmd.Flags().StringVarP(
			&archivePath, "archive", "a", "", "SQLite file to archive runs in (empty disables archiving)")
	}

	runCmd.Flags().StringVarP(
		&configPath, "config", "f", "", "YAML file describing the dataset and graph")
	runCmd.Flags().StringVarP(
		&valuesFlag, "values", "n", "", "comma-separated numbers, overriding the config")
	runCmd.Flags().BoolVarP(
		&streaming, "stream", "s", false, "produce steps lazily during playback")
	runCmd.Flags().BoolVarP(
		&showTable, "table", "t", false, "print every step as a table after the run")

	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

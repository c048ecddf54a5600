// Command sfbridge synchronizes Salesforce objects with Notion databases
// in both directions. Each invocation is one batch sync pass; checkpoints
// make repeated passes incremental.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sfbridge",
	Short: "Bidirectional Salesforce <-> Notion record sync",
	Long: `sfbridge keeps Salesforce objects and Notion databases consistent.

Each run performs one batch pass per configured object type:
  1. Push Salesforce records modified since the last run into Notion
  2. Push Notion entries edited since the last run back into Salesforce

Progress is checkpointed, so runs are incremental and resumable per
object type. Configuration comes from sfbridge.yaml and SFBRIDGE_*
environment variables.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default sfbridge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

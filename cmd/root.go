package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "free-ran-l2",
	Short: "LTE layer 2 simulator.",
	Long:  "LTE layer 2 simulator: a UE MAC stack over a loopback cell and an eNB with RRC mobility.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hexmap-server",
	Short: "Hexagonal map tile server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		logger.Init()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

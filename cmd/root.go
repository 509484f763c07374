package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/policyengine/grantkit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grantkit",
	Short: "Grant proposal budget and compliance toolkit",
	Long:  "Computes NSF-style budget rollups from declarative specs, validates proposals and salaries against funder rules and market wage data, and syncs grant state with a shared backend.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

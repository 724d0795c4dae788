/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/logger"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string

	cfg  *config.Config
	zlog *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "support-assistant",
	Short: "JioPay customer support assistant",
	Long: `A retrieval-augmented support assistant for JioPay.

It ingests the JioPay help-center pages into a local vector store and
answers customer questions through a terminal chat or a web UI, grounding
each answer in the retrieved documentation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		zlog, err = logger.New(cfg.LogLevel, cfg.Development)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zlog != nil {
			zlog.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is config/config.yaml or $HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

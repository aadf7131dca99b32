package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const programName = "stakepool"

var globalFlags = struct {
	configFile string
	envFile    string
}{}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Single-pool token staking ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", defaultConfig, "path to config file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.envFile, "env-file", ".env", "dotenv file loaded before config, ignored if missing")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(globalFlags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	for _, cmd := range clientCommands() {
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

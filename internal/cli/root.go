package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/erg0nix/skill-improver/internal/config"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "skill-improver",
		Short:             "Start and cancel skill improvement loops",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("state-dir", "", "directory holding session records (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	cfg = config.LoadFromEnv(cfg)

	if stateDir, _ := cmd.Flags().GetString("state-dir"); stateDir != "" {
		cfg.StateDir = stateDir
	}

	return cfg, nil
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/samsaffron/alicia/internal/config"
	"github.com/samsaffron/alicia/internal/history"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, config file, .env and
ALICIA_* environment overrides are applied. Secrets are masked.

Examples:
  alicia config
  alicia config path`,
	Args: cobra.NoArgs,
	RunE: configShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration and data file paths",
	Args:  cobra.NoArgs,
	RunE:  configPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := config.Dump(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func configPath(cmd *cobra.Command, args []string) error {
	cfgPath := configFile
	if cfgPath == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		cfgPath = filepath.Join(dir, "config.yaml")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath, err := history.GetDBPath(cfg.History)
	if err != nil {
		return err
	}
	imageDir, err := cfg.ImageDir()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config:  %s\n", cfgPath)
	fmt.Fprintf(out, "history: %s\n", dbPath)
	fmt.Fprintf(out, "images:  %s\n", imageDir)
	return nil
}

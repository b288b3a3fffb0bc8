package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ddr-generator/internal/common"
)

var (
	configPath string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ddr",
	Short: "Generate Detailed Diagnostic Reports",
	Long: `Reads a property inspection report and a thermal imaging report, extracts
findings from both with a language model, merges them per area and renders
a Detailed Diagnostic Report (DDR) as PDF.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (defaults to $DDR_CONFIG)")
}

// setup loads .env, the config file and the environment, then builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return common.WrapError(err, "load .env")
	}
	path := configPath
	if path == "" {
		path = os.Getenv("DDR_CONFIG")
	}
	loaded, err := common.LoadConfigFile(path)
	if err != nil {
		return err
	}
	cfg = loaded

	logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: common.ParseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	return nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, common.ErrInputValidation), errors.Is(err, common.ErrInvalidInput):
		return 2
	case errors.Is(err, common.ErrCancelled):
		return 130
	default:
		return 1
	}
}

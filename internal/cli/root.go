package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/claims-intake/internal/common"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var (
	cfgFile   string
	envFiles  []string
	v         = common.NewViper()
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "claims-intake",
	Short: "Forest-rights claim intake, OCR and field extraction",
	Long: `claims-intake accepts scanned claim forms (PDF or image), recognizes
their text, extracts the claimant name, village, claim type and coordinates,
and lets an operator review, correct, export and submit the results.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (HTTP_ADDR, OCR_LANG, ...), including .env files
  3. Config file (--config, or ./claims-intake.yaml)
  4. Defaults`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Root returns the root command for callers that need ExecuteContext.
func Root() *cobra.Command { return rootCmd }

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claims-intake %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./claims-intake.yaml)")
	pf.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default: .env)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: json or text")

	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log_format", pf.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env files, the config file and environment variables
func initConfig() {
	common.LoadDotEnv(envFiles...)

	if cfgFile != "" {
		configErr = common.ReadConfigFile(v, cfgFile)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName("claims-intake")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = common.NewAppError("CONFIG_ERROR", "cannot read config file", err)
		}
	}
}

// loadConfig returns the validated configuration and installs the process logger.
func loadConfig() (*common.Config, *slog.Logger, error) {
	if configErr != nil {
		return nil, nil, configErr
	}
	cfg := common.LoadConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

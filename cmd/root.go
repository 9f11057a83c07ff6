package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/config"
	"github.com/NancyGarg/transcribe-ai/logger"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// consoleLogs marks commands whose JSON logs may go to stdout. Every other
// command owns the terminal and only logs to the rotating file.
const consoleLogs = "console-logs"

var (
	cfg      *config.Config
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "transcribe-ai",
	Short:         "Record audio, transcribe it and read speaker-grouped transcripts",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		cfg = c

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(c.LogLevel),
			OutputPath: c.LogFile,
			MaxSize:    c.LogMaxSizeMB,
			MaxBackups: c.LogMaxBackups,
			MaxAge:     c.LogMaxAgeDays,
			Compress:   c.LogCompress,
			Quiet:      !verbose && cmd.Annotations[consoleLogs] != "true",
		})
		for _, problem := range c.Validate() {
			logger.Warn("Configuration problem", logger.String("problem", problem))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also write logs to stdout")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Sync()
		os.Exit(1)
	}
}

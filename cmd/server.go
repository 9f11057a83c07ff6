package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/core/auth"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/server"
)

var (
	serverAddr string
	serverDark bool
)

var serverCmd = &cobra.Command{
	Use:         "server",
	Short:       "Serve the recording controller over HTTP and WebSocket",
	Annotations: map[string]string{consoleLogs: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, appOptions{Notifier: logNotifier{}, Resume: true, Watch: true})
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("Waiting for background work before exit")
			if err := a.Close(); err != nil {
				logger.Error("Shutdown finished with errors", logger.ErrorField(err))
			}
		}()

		opts := server.Options{
			Addr:    cfg.ServerAddr,
			Palette: transcript.PaletteFor(serverDark),
		}
		if serverAddr != "" {
			opts.Addr = serverAddr
		}
		if cfg.AuthEnabled() {
			opts.PasswordHash = cfg.APIPasswordHash
			opts.Tokens = auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
		} else {
			logger.Warn("API authentication disabled; set API_PASSWORD_HASH and JWT_SECRET to enable it")
		}

		srv := server.New(a.ctrl, a.audio, opts)
		return srv.Run(ctx)
	},
}

func init() {
	serverCmd.Flags().StringVar(&serverAddr, "addr", "", "listen address (default from SERVER_ADDR)")
	serverCmd.Flags().BoolVar(&serverDark, "dark", false, "use the dark speaker palette in conversation responses")
	rootCmd.AddCommand(serverCmd)
}

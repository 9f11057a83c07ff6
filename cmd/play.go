package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/core/playback"
	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
)

var playCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Play a recording's audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.get(args[0])
		if err != nil {
			return err
		}
		ok, err := a.audio.Exists(ctx, e.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", recording.ErrAudioMissing, e.ID)
		}
		path := e.FilePath
		if _, statErr := os.Stat(path); path == "" || statErr != nil {
			path = a.audio.PathFor(e.ID)
		}

		player := playback.NewPlayer(cfg.FFplayPath, a.processor, cfg.ProgressInterval)
		defer player.Cleanup()

		ended := make(chan struct{})
		player.SubscribeEnd(func(string) { close(ended) })
		player.SubscribeProgress(func(p playback.Progress) {
			fmt.Fprintf(os.Stdout, "\r  ▶ %s / %s ", transcript.FormatClock(p.PositionMs), transcript.FormatClock(p.DurationMs))
		})

		console.Info(fmt.Sprintf("Playing %s (Ctrl+C to stop)", e.Title))
		if err := player.Start(ctx, path); err != nil {
			return err
		}
		select {
		case <-ended:
			fmt.Fprintln(os.Stdout)
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout)
			return player.Stop()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

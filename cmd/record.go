package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/model"
	"github.com/NancyGarg/transcribe-ai/output"
	"github.com/NancyGarg/transcribe-ai/tui"
)

var (
	recordMode     string
	recordPlain    bool
	recordDuration time.Duration
	recordDark     bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone and transcribe when stopped",
	Long: `Opens the interactive recorder. Space starts, pauses and resumes,
s stops and saves, c cancels, m switches mode while idle and q quits.

With --plain the recording starts immediately and stops on Ctrl+C or after
--duration, which suits scripts and non-interactive terminals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := model.ParseMode(recordMode)
		if err != nil {
			return err
		}
		palette := transcript.PaletteFor(recordDark)
		f := output.NewFormatter(os.Stdout)
		if recordPlain {
			return recordPlainly(cmd.Context(), f, mode, palette)
		}
		return recordInteractive(cmd.Context(), f, mode, palette)
	},
}

func recordInteractive(ctx context.Context, f *output.Formatter, mode model.RecordingMode, palette transcript.Palette) error {
	a, err := newApp(ctx, cfg, appOptions{Resume: true})
	if err != nil {
		return err
	}
	defer a.Close()
	session := time.Now().UnixMilli()

	events := make(chan recording.Event, 256)
	done := make(chan struct{})
	unsubscribe := a.ctrl.Subscribe(func(ev recording.Event) {
		if ev.Type == recording.EventProgress {
			select {
			case events <- ev:
			default:
			}
			return
		}
		select {
		case events <- ev:
		case <-done:
		}
	})

	_, runErr := tea.NewProgram(tui.New(a.ctrl, events, mode, palette), tea.WithAltScreen()).Run()
	close(done)
	unsubscribe()
	if runErr != nil {
		return runErr
	}

	var recorded []string
	for _, e := range a.ctrl.Recordings() {
		if e.CreatedAt >= session {
			recorded = append(recorded, e.ID)
		}
	}
	return finishSession(a, f, recorded, palette)
}

func recordPlainly(ctx context.Context, f *output.Formatter, mode model.RecordingMode, palette transcript.Palette) error {
	a, err := newApp(ctx, cfg, appOptions{Notifier: f, Resume: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		sigCtx, cancel = context.WithTimeout(sigCtx, recordDuration)
		defer cancel()
	}

	// The capture process must outlive the signal context so Stop can finalize it.
	if err := a.ctrl.Start(context.Background(), mode); err != nil {
		return err
	}
	f.RecordingStarted(mode)
	f.Info("Press Ctrl+C to stop")
	<-sigCtx.Done()

	entry, err := a.ctrl.Stop(context.Background())
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	f.RecordingStopped(entry.DurationMs)
	return finishSession(a, f, []string{entry.ID}, palette)
}

// finishSession waits for the session's transcriptions and prints the results.
func finishSession(a *app, f *output.Formatter, ids []string, palette transcript.Palette) error {
	if len(ids) == 0 {
		return a.Close()
	}
	f.Transcribing()
	err := a.Close()
	for _, id := range ids {
		if e, ok := a.ctrl.Get(id); ok {
			f.RecordingDetail(*e, palette)
		}
	}
	return err
}

func init() {
	recordCmd.Flags().StringVarP(&recordMode, "mode", "m", string(model.ModeVoiceNote), "recording mode: voice-note, interview or lecture")
	recordCmd.Flags().BoolVar(&recordPlain, "plain", false, "record without the interactive UI")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop automatically after this long (with --plain)")
	recordCmd.Flags().BoolVar(&recordDark, "dark", false, "use the dark speaker palette")
	rootCmd.AddCommand(recordCmd)
}

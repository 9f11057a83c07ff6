package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/model"
	"github.com/NancyGarg/transcribe-ai/output"
)

// console prints user-facing output for the non-interactive commands.
var console = output.NewFormatter(os.Stdout)

var (
	listJSON bool
	showDark bool
	clearYes bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recordings, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.ctrl.Recordings()
		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		console.RecordingList(entries, time.Now())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored recording and its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		e, err := findRecording(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		console.RecordingDetail(e, transcript.PaletteFor(showDark))
		return nil
	},
}

type recordingGetter interface {
	Get(ctx context.Context, id string) (*model.RecordingEntry, error)
}

// findRecording reads one entry straight from the store.
func findRecording(ctx context.Context, store recordingGetter, id string) (model.RecordingEntry, error) {
	e, err := store.Get(ctx, id)
	if err != nil {
		return model.RecordingEntry{}, fmt.Errorf("read %s: %w", id, err)
	}
	if e == nil {
		return model.RecordingEntry{}, fmt.Errorf("%w: %s", recording.ErrNotFound, id)
	}
	return *e, nil
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete recordings and their audio",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if _, err := a.get(id); err != nil {
				console.Warning(err.Error())
				continue
			}
			if err := a.ctrl.Delete(cmd.Context(), id); err != nil {
				return err
			}
			console.Success(fmt.Sprintf("Deleted %s", id))
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every recording from the library",
	Long:  "Removes every recording from the library. Audio files are left on disk.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear the library without --yes")
		}
		a, err := newApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n := len(a.ctrl.Recordings())
		if err := a.ctrl.ClearAll(cmd.Context()); err != nil {
			return err
		}
		console.Success(fmt.Sprintf("Cleared %d recordings", n))
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <id>",
	Short: "Transcribe a saved recording again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appOptions{Notifier: console})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ctrl.Retranscribe(cmd.Context(), args[0]); err != nil {
			return err
		}
		console.Transcribing()
		if err := a.Close(); err != nil {
			return err
		}
		e, err := a.get(args[0])
		if err != nil {
			return err
		}
		console.RecordingDetail(e, transcript.PaletteFor(showDark))
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the library as JSON")
	showCmd.Flags().BoolVar(&showDark, "dark", false, "use the dark speaker palette")
	transcribeCmd.Flags().BoolVar(&showDark, "dark", false, "use the dark speaker palette")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm clearing the library")
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, clearCmd, transcribeCmd)
}

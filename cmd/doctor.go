package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/config"
	"github.com/NancyGarg/transcribe-ai/core/audio"
	"github.com/NancyGarg/transcribe-ai/model"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check binaries, credentials and storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := console
		failed := 0
		check := func(name string, ok bool, detail string) {
			f.SetupCheck(name, ok, detail)
			if !ok {
				failed++
			}
		}

		if path := config.FilePath(); path != "" {
			check("config file", true, path)
		} else {
			check("config file", true, "none, using environment and defaults")
		}

		processor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
		for _, bin := range []struct{ name, path string }{
			{"ffmpeg", processor.FFmpegPath()},
			{"ffprobe", processor.FFprobePath()},
			{"ffplay", cfg.FFplayPath},
		} {
			resolved, err := exec.LookPath(bin.path)
			if err != nil {
				check(bin.name, false, fmt.Sprintf("%s not found", bin.path))
				continue
			}
			check(bin.name, true, resolved)
		}
		check("capture input", cfg.CaptureInputFormat != "", fmt.Sprintf("%s %s", cfg.CaptureInputFormat, cfg.CaptureInputDevice))

		problems := cfg.Validate()
		check("configuration", len(problems) == 0, fmt.Sprintf("%d problems", len(problems)))
		for _, p := range problems {
			f.Warning(p)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		a, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			check("storage", false, err.Error())
		} else {
			check("storage", true, fmt.Sprintf("%s library, %s audio, %d recordings",
				cfg.StoreDriver, cfg.AudioStore, len(a.ctrl.Recordings())))
			ok, detail := recordingCodecCheck(ctx, a.ctrl.Recordings(), a.audio, processor)
			check("recording codec", ok, detail)
			a.Close()
		}
		check("temp dir", os.MkdirAll(cfg.TempDir, 0755) == nil, cfg.TempDir)
		if cfg.AuthEnabled() {
			check("API auth", true, "enabled")
		} else {
			check("API auth", true, "disabled")
		}

		if failed > 0 {
			return fmt.Errorf("%d checks failed", failed)
		}
		f.Success("Ready to record")
		return nil
	},
}

type codecReader interface {
	GetAudioCodec(inputFile string) (string, error)
}

type audioLocator interface {
	Exists(ctx context.Context, id string) (bool, error)
	PathFor(id string) string
}

// recordingCodecCheck reads the codec of the newest recording whose audio is
// present and expects AAC, the format capture writes.
func recordingCodecCheck(ctx context.Context, entries []model.RecordingEntry, store audioLocator, codecs codecReader) (bool, string) {
	for _, e := range entries {
		ok, err := store.Exists(ctx, e.ID)
		if err != nil || !ok {
			continue
		}
		path := store.PathFor(e.ID)
		codec, err := codecs.GetAudioCodec(path)
		if err != nil {
			return false, err.Error()
		}
		if codec != "aac" {
			return false, fmt.Sprintf("%s is %s, want aac", e.ID, codec)
		}
		return true, fmt.Sprintf("%s is aac", e.ID)
	}
	return true, "no recordings to check"
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

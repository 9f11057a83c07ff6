package audio

import "context"

// Processor defines the audio file operations used by capture and playback.
type Processor interface {
	// GetAudioDuration returns the duration of an audio file in seconds.
	GetAudioDuration(inputFile string) (float32, error)
	// Concat joins parts, in order, into outputFile.
	Concat(ctx context.Context, parts []string, outputFile string) error
}

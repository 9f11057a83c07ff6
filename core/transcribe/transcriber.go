// Package transcribe sends finished recordings to a speech-to-text provider.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NancyGarg/transcribe-ai/config"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Options controls a single transcription request.
type Options struct {
	Diarize bool
}

// Result is the transcript of one audio file.
type Result struct {
	Transcript string
	Segments   []model.TranscriptSegment
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, opts Options) (*Result, error)
}

// Error is a provider failure whose Message can be shown to the user as is.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missingKey(provider string) *Error {
	return &Error{Provider: provider, Message: provider + " API key is not configured."}
}

func requestFailed(provider string, status int, body []byte) *Error {
	return &Error{
		Provider:   provider,
		StatusCode: status,
		Message:    fmt.Sprintf("%s request failed (%d): %s", provider, status, strings.TrimSpace(string(body))),
	}
}

// New returns the provider named by cfg.TranscribeProvider.
func New(cfg *config.Config) (Transcriber, error) {
	client := &http.Client{Timeout: cfg.TranscribeTimeout}
	switch cfg.TranscribeProvider {
	case "", "deepgram":
		return &Deepgram{APIKey: cfg.DeepgramAPIKey, Model: cfg.DeepgramModel, Client: client}, nil
	case "voxtral", "mistral":
		return &Voxtral{APIKey: cfg.MistralAPIKey, Model: cfg.MistralModel, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.TranscribeProvider)
	}
}

func secondsToMs(s float64) int64 {
	return int64(s*1000 + 0.5)
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Minute}
}

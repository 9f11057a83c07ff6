package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

const (
	deepgramProvider = "Deepgram"
	deepgramURL      = "https://api.deepgram.com/v1/listen"
)

// Deepgram uploads the raw audio to the Deepgram listen endpoint.
type Deepgram struct {
	APIKey  string
	Model   string
	BaseURL string // overrides deepgramURL in tests
	Client  *http.Client
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Paragraphs *struct {
					Transcript string `json:"transcript"`
					Paragraphs []struct {
						Speaker   *int `json:"speaker"`
						Sentences []struct {
							Text  string  `json:"text"`
							Start float64 `json:"start"`
							End   float64 `json:"end"`
						} `json:"sentences"`
					} `json:"paragraphs"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			ID         string  `json:"id"`
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Speaker    *int    `json:"speaker"`
		} `json:"utterances"`
	} `json:"results"`
}

func (d *Deepgram) endpoint(opts Options) string {
	base := d.BaseURL
	if base == "" {
		base = deepgramURL
	}
	q := url.Values{}
	m := d.Model
	if m == "" {
		m = "nova-2"
	}
	q.Set("model", m)
	q.Set("smart_format", "true")
	if opts.Diarize {
		q.Set("diarize", "true")
		q.Set("utterances", "true")
	}
	return base + "?" + q.Encode()
}

// Transcribe implements Transcriber.
func (d *Deepgram) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	if d.APIKey == "" {
		return nil, missingKey(deepgramProvider)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint(opts), file)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "audio/aac")

	resp, err := httpClient(d.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Deepgram API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("Deepgram request failed", logger.Int("status", resp.StatusCode))
		return nil, requestFailed(deepgramProvider, resp.StatusCode, body)
	}

	var payload deepgramResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing Deepgram response: %w", err)
	}
	return parseDeepgram(&payload)
}

func parseDeepgram(payload *deepgramResponse) (*Result, error) {
	empty := &Error{Provider: deepgramProvider, Message: "No transcript returned from Deepgram."}
	if len(payload.Results.Channels) == 0 || len(payload.Results.Channels[0].Alternatives) == 0 {
		return nil, empty
	}
	alt := payload.Results.Channels[0].Alternatives[0]

	transcript := alt.Transcript
	if alt.Paragraphs != nil && alt.Paragraphs.Transcript != "" {
		transcript = alt.Paragraphs.Transcript
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, empty
	}

	var segments []model.TranscriptSegment
	switch {
	case len(payload.Results.Utterances) > 0:
		for _, u := range payload.Results.Utterances {
			id := u.ID
			if id == "" {
				id = uuid.NewString()
			}
			segments = append(segments, model.TranscriptSegment{
				ID:      id,
				StartMs: secondsToMs(u.Start),
				EndMs:   secondsToMs(u.End),
				Text:    u.Transcript,
				Speaker: speakerTag(u.Speaker),
			})
		}
	case alt.Paragraphs != nil && len(alt.Paragraphs.Paragraphs) > 0:
		for _, p := range alt.Paragraphs.Paragraphs {
			for _, s := range p.Sentences {
				segments = append(segments, model.TranscriptSegment{
					ID:      uuid.NewString(),
					StartMs: secondsToMs(s.Start),
					EndMs:   secondsToMs(s.End),
					Text:    s.Text,
					Speaker: speakerTag(p.Speaker),
				})
			}
		}
	default:
		segments = []model.TranscriptSegment{{ID: uuid.NewString(), Text: transcript}}
	}

	return &Result{Transcript: transcript, Segments: segments}, nil
}

func speakerTag(s *int) string {
	if s == nil {
		return ""
	}
	return strconv.Itoa(*s)
}

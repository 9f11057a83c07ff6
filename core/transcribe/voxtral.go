package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NancyGarg/transcribe-ai/model"
)

const (
	voxtralProvider = "Mistral"
	voxtralURL      = "https://api.mistral.ai/v1/audio/transcriptions"
)

// Voxtral uses Mistral's audio transcription endpoint.
type Voxtral struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

type voxtralResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Speaker json.RawMessage `json:"speaker"`
		Text    string          `json:"text"`
		Start   float64         `json:"start"`
		End     float64         `json:"end"`
	} `json:"segments"`
}

// Transcribe implements Transcriber.
func (v *Voxtral) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	if v.APIKey == "" {
		return nil, missingKey(voxtralProvider)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	modelName := v.Model
	if modelName == "" {
		modelName = "voxtral-mini-latest"
	}
	if err := writer.WriteField("model", modelName); err != nil {
		return nil, err
	}
	if err := writer.WriteField("diarize", strconv.FormatBool(opts.Diarize)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("timestamp_granularities", "segment"); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := v.BaseURL
	if endpoint == "" {
		endpoint = voxtralURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+v.APIKey)

	resp, err := httpClient(v.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Mistral API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, requestFailed(voxtralProvider, resp.StatusCode, respBody)
	}

	var apiResp voxtralResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing Mistral response: %w", err)
	}

	result := &Result{Transcript: strings.TrimSpace(apiResp.Text)}
	for i, seg := range apiResp.Segments {
		result.Segments = append(result.Segments, model.TranscriptSegment{
			ID:      strconv.Itoa(i),
			StartMs: secondsToMs(seg.Start),
			EndMs:   secondsToMs(seg.End),
			Text:    seg.Text,
			Speaker: rawSpeaker(seg.Speaker),
		})
	}
	if result.Transcript == "" {
		parts := make([]string, 0, len(result.Segments))
		for _, s := range result.Segments {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
		result.Transcript = strings.Join(parts, " ")
	}
	if result.Transcript == "" {
		return nil, &Error{Provider: voxtralProvider, Message: "No transcript returned from Mistral."}
	}
	return result, nil
}

// rawSpeaker accepts the speaker as a JSON string or number.
func rawSpeaker(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

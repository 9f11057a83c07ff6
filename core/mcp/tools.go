// Package mcp serves the recording library as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Library is the part of recording.Controller the tools read and modify.
type Library interface {
	Recordings() []model.RecordingEntry
	Get(id string) (*model.RecordingEntry, bool)
	Delete(ctx context.Context, id string) error
}

// RecordingSummary is one row of list_recordings.
type RecordingSummary struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Mode       model.RecordingMode   `json:"mode"`
	Status     model.RecordingStatus `json:"status"`
	DurationMs int64                 `json:"durationMs"`
	Duration   string                `json:"duration"`
	CreatedAt  int64                 `json:"createdAt"`
	Error      string                `json:"error,omitempty"`
}

// Tools holds the tool handlers.
type Tools struct {
	lib     Library
	palette transcript.Palette
}

// NewTools creates handlers over lib.
func NewTools(lib Library) *Tools {
	return &Tools{lib: lib, palette: transcript.LightPalette}
}

// NewServer registers every tool on a new MCP server.
func NewServer(lib Library, version string) *server.MCPServer {
	s := server.NewMCPServer("transcribe-ai", version, server.WithToolCapabilities(false))
	t := NewTools(lib)

	s.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("List recordings in the library, newest first, with their transcription status."),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.ListRecordings)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get the plain transcript of a recording."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recording id, e.g. rec-...")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.GetTranscript)

	s.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get a recording's transcript grouped into speaker turns (interviews) or timed segments (other modes)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recording id")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.GetConversation)

	s.AddTool(mcp.NewTool("delete_recording",
		mcp.WithDescription("Delete a recording, its audio file and its metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recording id")),
		mcp.WithDestructiveHintAnnotation(true),
	), t.DeleteRecording)

	return s
}

// Serve runs the tool server on stdin/stdout until the client disconnects.
func Serve(lib Library, version string) error {
	logger.Info("MCP server starting on stdio")
	return server.ServeStdio(NewServer(lib, version))
}

// ListRecordings handles list_recordings.
func (t *Tools) ListRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := t.lib.Recordings()
	out := make([]RecordingSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, RecordingSummary{
			ID:         e.ID,
			Title:      e.Title,
			Mode:       e.Mode,
			Status:     e.Status,
			DurationMs: e.DurationMs,
			Duration:   transcript.FormatClock(e.DurationMs),
			CreatedAt:  e.CreatedAt,
			Error:      e.ErrorMessage,
		})
	}
	return jsonResult(out)
}

// GetTranscript handles get_transcript.
func (t *Tools) GetTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, errResult := t.lookup(req)
	if errResult != nil {
		return errResult, nil
	}
	switch entry.Status {
	case model.StatusFailed:
		return mcp.NewToolResultError(fmt.Sprintf("transcription failed: %s", entry.ErrorMessage)), nil
	case model.StatusCompleted:
		return mcp.NewToolResultText(entry.Transcript), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("recording %s is still being transcribed", entry.ID)), nil
	}
}

// GetConversation handles get_conversation.
func (t *Tools) GetConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, errResult := t.lookup(req)
	if errResult != nil {
		return errResult, nil
	}
	if entry.Status != model.StatusCompleted {
		return mcp.NewToolResultError(fmt.Sprintf("recording %s has no transcript (status %s)", entry.ID, entry.Status)), nil
	}

	var b strings.Builder
	for _, item := range transcript.Present(entry.Mode, entry.TranscriptSegments, t.palette) {
		if item.SpeakerLabel != "" {
			fmt.Fprintf(&b, "%s: %s\n", item.SpeakerLabel, item.Text)
		} else {
			fmt.Fprintf(&b, "[%s] %s\n", transcript.FormatClock(item.StartMs), item.Text)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// DeleteRecording handles delete_recording. Unknown ids succeed.
func (t *Tools) DeleteRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.lib.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (t *Tools) lookup(req mcp.CallToolRequest) (*model.RecordingEntry, *mcp.CallToolResult) {
	id, err := req.RequireString("id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	entry, ok := t.lib.Get(id)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("recording %s not found", id))
	}
	return entry, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

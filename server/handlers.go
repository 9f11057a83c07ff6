package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// StartRequest is the body of POST /api/recording/start.
type StartRequest struct {
	Mode string `json:"mode"`
}

// ConversationResponse is the rendered transcript of one recording.
type ConversationResponse struct {
	ID       string                `json:"id"`
	Mode     model.RecordingMode   `json:"mode"`
	Status   model.RecordingStatus `json:"status"`
	Speakers []string              `json:"speakers,omitempty"`
	Items    []transcript.Item     `json:"items"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// StateHandler returns the controller snapshot.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// StartHandler starts a recording in the requested mode.
func (s *Server) StartHandler(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.Start(r.Context(), mode); err != nil {
		logger.Error("[API] Start failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Unable to start recording.")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// PauseHandler pauses the active recording.
func (s *Server) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Pause(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to pause recording.")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// ResumeHandler resumes a paused recording.
func (s *Server) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Resume(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to resume recording.")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// StopHandler finalizes the active recording. The response is the new entry,
// or the unchanged snapshot when nothing was recording.
func (s *Server) StopHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ctrl.Stop(r.Context())
	switch {
	case errors.Is(err, recording.ErrAudioNotSaved):
		writeError(w, http.StatusInternalServerError, "Recording stopped but failed to save. The file may be lost.")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Unable to stop recording.")
		return
	case entry == nil:
		writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// CancelHandler discards the active recording.
func (s *Server) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Cancel(r.Context()); err != nil {
		logger.Warn("[API] Cancel reported an error", logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// ListHandler returns the library, newest first.
func (s *Server) ListHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Recordings())
}

// ClearHandler empties the library.
func (s *Server) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear recordings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*model.RecordingEntry, bool) {
	id := mux.Vars(r)["id"]
	entry, ok := s.ctrl.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Recording not found")
		return nil, false
	}
	return entry, true
}

// GetHandler returns one entry.
func (s *Server) GetHandler(w http.ResponseWriter, r *http.Request) {
	if entry, ok := s.entry(w, r); ok {
		writeJSON(w, http.StatusOK, entry)
	}
}

// DeleteHandler removes a recording. Unknown ids succeed.
func (s *Server) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TranscribeHandler queues a new transcription of an existing recording.
func (s *Server) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.ctrl.Retranscribe(r.Context(), id)
	switch {
	case errors.Is(err, recording.ErrNotFound):
		writeError(w, http.StatusNotFound, "Recording not found")
	case errors.Is(err, recording.ErrAudioMissing):
		writeError(w, http.StatusGone, "Audio file not found")
	case err != nil:
		logger.Error("[API] Retranscribe failed", logger.RecordingID(id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Transcription failed. Please try again later.")
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

// ConversationHandler renders the transcript the way the recording's mode
// presents it.
func (s *Server) ConversationHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	resp := ConversationResponse{
		ID:     entry.ID,
		Mode:   entry.Mode,
		Status: entry.Status,
		Items:  transcript.Present(entry.Mode, entry.TranscriptSegments, s.opts.Palette),
	}
	if entry.Mode.Diarize() {
		resp.Speakers = distinct(transcript.Labels(entry.TranscriptSegments))
	}
	if resp.Items == nil {
		resp.Items = []transcript.Item{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AudioHandler streams the stored audio with range support.
func (s *Server) AudioHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(w, r)
	if !ok {
		return
	}
	path := entry.FilePath
	if path == "" && s.audio != nil {
		path = s.audio.PathFor(entry.ID)
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audio file")
		return
	}
	w.Header().Set("Content-Type", "audio/aac")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func distinct(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

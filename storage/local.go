// Package storage keeps finalized recording audio.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NancyGarg/transcribe-ai/core/audio"
)

// AudioExt is the extension of every stored recording.
const AudioExt = ".aac"

// ErrAudioNotFound is returned when a recording has no audio file.
var ErrAudioNotFound = errors.New("audio file not found")

// LocalAudioStore keeps audio at <dir>/<id>.aac.
type LocalAudioStore struct {
	dir string
}

// NewLocalAudioStore creates the directory if needed.
func NewLocalAudioStore(dir string) (*LocalAudioStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings dir: %w", err)
	}
	return &LocalAudioStore{dir: dir}, nil
}

// Dir returns the directory holding the audio files.
func (s *LocalAudioStore) Dir() string {
	return s.dir
}

// PathFor returns the permanent path for id.
func (s *LocalAudioStore) PathFor(id string) string {
	return filepath.Join(s.dir, id+AudioExt)
}

// Save copies tempPath to the permanent location for id.
func (s *LocalAudioStore) Save(ctx context.Context, tempPath, id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings dir: %w", err)
	}
	dest := s.PathFor(id)
	if err := audio.CopyFile(tempPath, dest); err != nil {
		return "", fmt.Errorf("failed to save audio file: %w", err)
	}
	return dest, nil
}

// Exists reports whether the audio for id is on disk.
func (s *LocalAudioStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := os.Stat(s.PathFor(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete removes the audio for id if it exists.
func (s *LocalAudioStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.PathFor(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete audio file: %w", err)
	}
	return nil
}

// Open opens the audio for id for reading.
func (s *LocalAudioStore) Open(id string) (*os.File, error) {
	f, err := os.Open(s.PathFor(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrAudioNotFound
	}
	return f, err
}

// List returns the ids of every stored recording, sorted.
func (s *LocalAudioStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if id, ok := IDFromFile(e.Name()); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// IDFromFile extracts the recording id from a stored file name.
func IDFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, AudioExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	id := strings.TrimSuffix(base, AudioExt)
	return id, id != ""
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid recording id %q", id)
	}
	return nil
}

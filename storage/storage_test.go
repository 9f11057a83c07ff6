package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "capture.aac")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return p
}

func TestLocalAudioStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalAudioStore(filepath.Join(t.TempDir(), "recordings"))
	if err != nil {
		t.Fatalf("NewLocalAudioStore: %v", err)
	}

	dest, err := s.Save(ctx, writeTemp(t, "audio"), "rec-1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if dest != s.PathFor("rec-1") {
		t.Errorf("dest = %q, want %q", dest, s.PathFor("rec-1"))
	}
	if ok, err := s.Exists(ctx, "rec-1"); err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	ids, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != "rec-1" {
		t.Errorf("List = %v, want [rec-1]", ids)
	}

	f, err := s.Open("rec-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()

	if err := s.Delete(ctx, "rec-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "rec-1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, "rec-1"); ok {
		t.Error("audio still exists after delete")
	}
	if _, err := s.Open("rec-1"); !errors.Is(err, ErrAudioNotFound) {
		t.Errorf("Open after delete = %v, want ErrAudioNotFound", err)
	}
}

func TestLocalAudioStoreRejectsPathIDs(t *testing.T) {
	s, err := NewLocalAudioStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalAudioStore: %v", err)
	}
	for _, id := range []string{"", "../x", "a/b"} {
		if _, err := s.Save(context.Background(), writeTemp(t, "x"), id); err == nil {
			t.Errorf("Save(%q) succeeded, want error", id)
		}
	}
}

func TestIDFromFile(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"/data/rec-1.aac", "rec-1", true},
		{"recordings/rec-2.aac", "rec-2", true},
		{"rec-3.m4a", "", false},
		{".aac", "", false},
		{".hidden.aac", "", false},
	}
	for _, tt := range tests {
		id, ok := IDFromFile(tt.name)
		if id != tt.id || ok != tt.ok {
			t.Errorf("IDFromFile(%q) = %q, %v; want %q, %v", tt.name, id, ok, tt.id, tt.ok)
		}
	}
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) FPutObject(ctx context.Context, bucket, name, path string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: int64(len(data))}, nil
}

func (f *fakeObjects) FGetObject(ctx context.Context, bucket, name, path string, opts minio.GetObjectOptions) error {
	f.mu.Lock()
	data, ok := f.objects[name]
	f.mu.Unlock()
	if !ok {
		return minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return os.WriteFile(path, data, 0644)
}

func (f *fakeObjects) StatObject(ctx context.Context, bucket, name string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: name, Size: int64(len(data))}, nil
}

func (f *fakeObjects) RemoveObject(ctx context.Context, bucket, name string, opts minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	return nil
}

func (f *fakeObjects) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[name]
	return ok
}

func TestMinioAudioStoreMirrorsAndRestores(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalAudioStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalAudioStore: %v", err)
	}
	objects := newFakeObjects()
	s := NewMinioAudioStore(local, objects, "recordings")

	if _, err := s.Save(ctx, writeTemp(t, "mirrored"), "rec-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !objects.has("recordings/rec-1.aac") {
		t.Fatal("object not uploaded")
	}

	if err := os.Remove(local.PathFor("rec-1")); err != nil {
		t.Fatalf("remove local: %v", err)
	}
	ok, err := s.Exists(ctx, "rec-1")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want restored", ok, err)
	}
	data, err := os.ReadFile(local.PathFor("rec-1"))
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(data) != "mirrored" {
		t.Errorf("restored content = %q, want %q", data, "mirrored")
	}

	if err := s.Delete(ctx, "rec-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if objects.has("recordings/rec-1.aac") {
		t.Error("object survived delete")
	}
	if ok, err := s.Exists(ctx, "rec-1"); err != nil || ok {
		t.Errorf("Exists after delete = %v, %v; want false", ok, err)
	}
}

func TestMinioAudioStoreUploadFailureKeepsLocal(t *testing.T) {
	local, err := NewLocalAudioStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalAudioStore: %v", err)
	}
	objects := newFakeObjects()
	objects.putErr = errors.New("connection refused")
	s := NewMinioAudioStore(local, objects, "recordings")

	dest, err := s.Save(context.Background(), writeTemp(t, "x"), "rec-1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("local copy missing: %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestOrphanedObjects(t *testing.T) {
	objects := []ObjectInfo{
		{Key: "recordings/rec-1.aac"},
		{Key: "recordings/rec-2.aac"},
		{Key: "other/rec-3.aac"},
	}
	got := OrphanedObjects(objects, map[string]bool{"rec-1": true})
	if len(got) != 1 || got[0] != "rec-2" {
		t.Errorf("OrphanedObjects = %v, want [rec-2]", got)
	}
}

func TestWatcherReportsRemovedRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec-1.aac")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	missing := make(chan string, 4)
	w, err := NewWatcher(dir, func(id string) { missing <- id })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	os.Remove(filepath.Join(dir, "notes.txt"))
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case id := <-missing:
		if id != "rec-1" {
			t.Errorf("missing id = %q, want rec-1", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no missing callback")
	}
}

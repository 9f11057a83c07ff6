package playback

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TestHelperProcess stands in for ffplay. HELPER_PLAY_MS sets how long it
// "plays" before exiting.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	ms, _ := strconv.Atoi(os.Getenv("HELPER_PLAY_MS"))
	time.Sleep(time.Duration(ms) * time.Millisecond)
	os.Exit(0)
}

type launches struct {
	mu   sync.Mutex
	args [][]string
}

func (l *launches) command(playMs int) func(string, ...string) *exec.Cmd {
	return func(name string, args ...string) *exec.Cmd {
		l.mu.Lock()
		l.args = append(l.args, append([]string(nil), args...))
		l.mu.Unlock()
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.Command(os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_PLAY_MS="+strconv.Itoa(playMs))
		return cmd
	}
}

func (l *launches) seekArg(i int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	args := l.args[i]
	for j, a := range args {
		if a == "-ss" && j+1 < len(args) {
			return args[j+1]
		}
	}
	return ""
}

func (l *launches) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.args)
}

type fixedDuration float32

func (d fixedDuration) GetAudioDuration(string) (float32, error) { return float32(d), nil }

func audioFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rec-1.aac")
	if err := os.WriteFile(p, []byte("AAC"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestPlayerReportsEnd(t *testing.T) {
	l := &launches{}
	p := NewPlayer("ffplay", fixedDuration(2.5), 10*time.Millisecond)
	p.newCommand = l.command(50)

	ended := make(chan string, 1)
	p.SubscribeEnd(func(path string) { ended <- path })
	var mu sync.Mutex
	var last Progress
	p.SubscribeProgress(func(pr Progress) {
		mu.Lock()
		last = pr
		mu.Unlock()
	})

	path := audioFile(t)
	if err := p.Start(context.Background(), path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case got := <-ended:
		if got != path {
			t.Errorf("ended path = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no end event")
	}

	mu.Lock()
	defer mu.Unlock()
	if last.PositionMs != 2500 || last.DurationMs != 2500 {
		t.Errorf("final progress = %+v, want 2500/2500", last)
	}
	if p.Playing() {
		t.Error("still playing after end")
	}
	if got := l.seekArg(0); got != "0.000" {
		t.Errorf("first -ss = %q, want 0.000", got)
	}
}

func TestPlayerPauseResumeSeeks(t *testing.T) {
	l := &launches{}
	p := NewPlayer("ffplay", nil, 10*time.Millisecond)
	p.newCommand = l.command(10000)
	defer p.Cleanup()

	ended := make(chan string, 1)
	p.SubscribeEnd(func(path string) { ended <- path })

	ctx := context.Background()
	if err := p.Start(ctx, audioFile(t)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if err := p.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if p.Playing() {
		t.Fatal("playing after pause")
	}
	paused := p.Position().PositionMs
	if paused < 50 {
		t.Errorf("paused position = %dms, want >= 50", paused)
	}

	if err := p.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if l.count() != 2 {
		t.Fatalf("launches = %d, want 2", l.count())
	}
	seek, err := strconv.ParseFloat(l.seekArg(1), 64)
	if err != nil {
		t.Fatalf("parse -ss: %v", err)
	}
	if diff := int64(seek*1000) - paused; diff < -1 || diff > 1 {
		t.Errorf("resume -ss = %vs, want %dms", seek, paused)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-ended:
		t.Error("end event after explicit stop")
	case <-time.After(50 * time.Millisecond):
	}
	if err := p.Resume(ctx); err != ErrNothingLoaded {
		t.Errorf("Resume after stop = %v, want ErrNothingLoaded", err)
	}
}

func TestPlayerStartMissingFile(t *testing.T) {
	p := NewPlayer("ffplay", nil, 0)
	if err := p.Start(context.Background(), filepath.Join(t.TempDir(), "nope.aac")); err == nil {
		t.Fatal("Start succeeded on missing file")
	}
}

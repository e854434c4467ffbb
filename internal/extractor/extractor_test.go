package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nguyentantai21042004/batch-transcriber/internal/config"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
	"github.com/nguyentantai21042004/batch-transcriber/pkg/executor"
)

// fakeExecutor writes the last argument as the output file unless err is set.
type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	out := args[len(args)-1]
	if f.err != nil {
		_ = os.WriteFile(out, []byte("partial"), 0644)
		return "", f.err
	}
	return "", os.WriteFile(out, []byte("RIFF"), 0644)
}

func (f *fakeExecutor) LookPath(name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "/usr/bin/" + name, nil
}

func newTestExtractor(t *testing.T, exec executor.Executor) (Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	return New(config.FFmpegConfig{}, dir, exec, logger.Nop()), dir
}

func TestExtract(t *testing.T) {
	exec := &fakeExecutor{}
	ext, dir := newTestExtractor(t, exec)

	input := domain.InputFile{Path: "/media/talk.mp4", Extension: ".mp4"}
	audio, err := ext.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if filepath.Dir(audio.Path) != dir {
		t.Errorf("audio path %s not under temp dir %s", audio.Path, dir)
	}
	if !strings.HasPrefix(filepath.Base(audio.Path), "talk-") || filepath.Ext(audio.Path) != ".wav" {
		t.Errorf("unexpected audio name %s", audio.Path)
	}
	if audio.Source != input {
		t.Errorf("Source = %+v", audio.Source)
	}

	args := strings.Join(exec.calls[0], " ")
	for _, want := range []string{"ffmpeg", "-i /media/talk.mp4", "-vn", "-ac 1", "-ar 16000", "pcm_s16le"} {
		if !strings.Contains(args, want) {
			t.Errorf("ffmpeg args %q missing %q", args, want)
		}
	}
}

func TestExtractUniquePaths(t *testing.T) {
	ext, _ := newTestExtractor(t, &fakeExecutor{})
	input := domain.InputFile{Path: "same.wav", Extension: ".wav"}

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			audio, err := ext.Extract(context.Background(), input)
			if err != nil {
				t.Errorf("Extract() error = %v", err)
				return
			}
			paths[i] = audio.Path
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("duplicate temp path %s", p)
		}
		seen[p] = true
	}
}

func TestExtractFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStderr string
	}{
		{
			name:       "non-zero exit",
			err:        &executor.CommandError{Name: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found", Err: errors.New("exit status 1")},
			wantStderr: "Invalid data found",
		},
		{
			name: "binary missing",
			err:  &executor.CommandError{Name: "ffmpeg", NotFound: true, Err: errors.New("executable file not found")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, dir := newTestExtractor(t, &fakeExecutor{err: tt.err})

			_, err := ext.Extract(context.Background(), domain.InputFile{Path: "bad.mkv"})
			var extractErr *domain.ExtractionError
			if !errors.As(err, &extractErr) {
				t.Fatalf("expected *ExtractionError, got %v", err)
			}
			if extractErr.InputPath != "bad.mkv" {
				t.Errorf("InputPath = %q", extractErr.InputPath)
			}
			if extractErr.Stderr != tt.wantStderr {
				t.Errorf("Stderr = %q, want %q", extractErr.Stderr, tt.wantStderr)
			}
			if domain.KindOf(err) != domain.KindExtraction {
				t.Errorf("KindOf() = %q", domain.KindOf(err))
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("partial output left behind: %v", entries)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	ext, _ := newTestExtractor(t, &fakeExecutor{})
	if err := ext.Available(); err != nil {
		t.Errorf("Available() error = %v", err)
	}

	ext, _ = newTestExtractor(t, &fakeExecutor{err: errors.New("missing")})
	if err := ext.Available(); err == nil {
		t.Error("Available() should fail when lookup fails")
	}
}

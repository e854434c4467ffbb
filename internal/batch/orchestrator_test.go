package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nguyentantai21042004/batch-transcriber/internal/deepgram"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
	"github.com/nguyentantai21042004/batch-transcriber/internal/renderer"
)

type fakeExtractor struct {
	dir   string
	fail  map[string]error
	mu    sync.Mutex
	n     int
	paths []string
}

func (f *fakeExtractor) Extract(ctx context.Context, input domain.InputFile) (*domain.ExtractedAudio, error) {
	if err, ok := f.fail[input.Name()]; ok {
		return nil, &domain.ExtractionError{InputPath: input.Path, Err: err}
	}
	f.mu.Lock()
	f.n++
	path := filepath.Join(f.dir, fmt.Sprintf("%s-%d.wav", input.Stem(), f.n))
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		return nil, err
	}
	return &domain.ExtractedAudio{Source: input, Path: path}, nil
}

func (f *fakeExtractor) Available() error { return nil }

type fakeClient struct {
	mu     sync.Mutex
	calls  []string
	handle func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error)
}

func (c *fakeClient) Transcribe(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req.Source.Name())
	c.mu.Unlock()
	if c.handle != nil {
		return c.handle(ctx, req)
	}
	return &domain.TranscriptResult{Source: req.Source, Text: "text of " + req.Source.Name()}, nil
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type harness struct {
	in, out string
	ext     *fakeExtractor
	client  *fakeClient
	events  []Event
	orch    Orchestrator
}

func newHarness(t *testing.T, workers int, files ...string) *harness {
	t.Helper()
	h := &harness{
		in:     t.TempDir(),
		out:    filepath.Join(t.TempDir(), "out"),
		ext:    &fakeExtractor{dir: t.TempDir(), fail: map[string]error{}},
		client: &fakeClient{},
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(h.in, name), []byte("media"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	rend := renderer.New(renderer.Options{FontDirs: []string{}}, logger.Nop())
	h.orch = New(h.ext, h.client, rend, logger.Nop(), Options{
		Workers:  workers,
		Listener: func(e Event) { h.events = append(h.events, e) },
	})
	return h
}

func (h *harness) job() domain.Job {
	return domain.NewJob(h.in, h.out, "key", "es")
}

func (h *harness) assertTempCleaned(t *testing.T) {
	t.Helper()
	for _, p := range h.ext.paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp audio %s left behind", p)
		}
	}
}

func kinds(res *Result) []domain.ErrorKind {
	out := make([]domain.ErrorKind, len(res.Outcomes))
	for i, o := range res.Outcomes {
		out[i] = o.Kind
	}
	return out
}

func TestRunEmptyInput(t *testing.T) {
	h := newHarness(t, 1, "notes.txt", "cover.jpg")

	res, err := h.orch.Run(context.Background(), h.job())
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if h.client.callCount() != 0 {
		t.Error("client called for empty input")
	}
	if _, err := os.Stat(h.out); !os.IsNotExist(err) {
		t.Error("output directory created for empty input")
	}
	if h.orch.State() != StateIdle {
		t.Errorf("State() = %s, want idle", h.orch.State())
	}
	if ExitCode(res, err) != ExitSetupError {
		t.Errorf("ExitCode() = %d", ExitCode(res, err))
	}
}

func TestRunInvalidJob(t *testing.T) {
	h := newHarness(t, 1, "a.mp3")
	job := h.job()
	job.APIKey = ""

	if _, err := h.orch.Run(context.Background(), job); err == nil {
		t.Fatal("expected validation error")
	}
	if h.client.callCount() != 0 || len(h.ext.paths) != 0 {
		t.Error("work started for an invalid job")
	}
}

func TestRunMixedOutcomes(t *testing.T) {
	h := newHarness(t, 1, "a.mp4", "b.txt", "c.wav", "d.mp3")
	h.ext.fail["d.mp3"] = errors.New("exit status 1")
	h.client.handle = func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
		if req.Source.Name() == "c.wav" {
			return nil, &domain.TranscriptionError{Kind: domain.KindProvider, StatusCode: 400, Message: "corrupt audio"}
		}
		return &domain.TranscriptResult{Source: req.Source, Text: "hello"}, nil
	}

	res, err := h.orch.Run(context.Background(), h.job())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Outcomes) != 3 {
		t.Fatalf("len(Outcomes) = %d, want 3", len(res.Outcomes))
	}
	wantNames := []string{"a.mp4", "c.wav", "d.mp3"}
	wantKinds := []domain.ErrorKind{"", domain.KindProvider, domain.KindExtraction}
	wantStages := []Stage{StageDone, StageTranscribing, StageExtracting}
	for i, o := range res.Outcomes {
		if o.Input.Name() != wantNames[i] {
			t.Errorf("Outcomes[%d] = %s, want %s", i, o.Input.Name(), wantNames[i])
		}
		if o.Kind != wantKinds[i] || o.Stage != wantStages[i] {
			t.Errorf("Outcomes[%d] kind=%q stage=%q, want %q %q", i, o.Kind, o.Stage, wantKinds[i], wantStages[i])
		}
	}

	if _, err := os.Stat(filepath.Join(h.out, "pdf", "a.pdf")); err != nil {
		t.Errorf("a.pdf missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.out, "txt", "c.txt")); !os.IsNotExist(err) {
		t.Error("c.txt written for a failed file")
	}

	totals := res.Totals()
	if totals != (Totals{Success: 1, Failed: 2, Total: 3}) {
		t.Errorf("Totals() = %+v", totals)
	}
	if res.State != StateCompleted || h.orch.State() != StateCompleted {
		t.Errorf("state = %s / %s", res.State, h.orch.State())
	}
	if ExitCode(res, err) != ExitPartialFailure {
		t.Errorf("ExitCode() = %d", ExitCode(res, err))
	}

	wantEvents := []EventType{EventFileDone, EventFileFailed, EventFileFailed, EventBatchSummary}
	if len(h.events) != len(wantEvents) {
		t.Fatalf("got %d events, want %d", len(h.events), len(wantEvents))
	}
	for i, e := range h.events {
		if e.Event != wantEvents[i] {
			t.Errorf("events[%d] = %s, want %s", i, e.Event, wantEvents[i])
		}
		if e.RunID != res.RunID {
			t.Errorf("events[%d] run id = %q", i, e.RunID)
		}
	}
	if h.events[1].ErrorKind != domain.KindProvider {
		t.Errorf("file_failed kind = %q", h.events[1].ErrorKind)
	}
	if sum := h.events[3].Totals; sum == nil || *sum != totals {
		t.Errorf("summary totals = %+v", sum)
	}

	h.assertTempCleaned(t)
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	h := newHarness(t, 1, "a.mp4", "b.m4a")

	if _, err := h.orch.Run(context.Background(), h.job()); err != nil {
		t.Fatal(err)
	}
	if h.client.callCount() != 2 {
		t.Fatalf("first run calls = %d", h.client.callCount())
	}
	info, err := os.Stat(filepath.Join(h.out, "txt", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.orch.Run(context.Background(), h.job())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if h.client.callCount() != 2 {
		t.Errorf("client called again on second run: %d calls", h.client.callCount())
	}
	for _, o := range res.Outcomes {
		if !o.Succeeded() || !o.Cached || o.Artifacts == nil {
			t.Errorf("outcome %s = %+v, want cached success", o.Input.Name(), o)
		}
	}
	again, _ := os.Stat(filepath.Join(h.out, "txt", "a.txt"))
	if !again.ModTime().Equal(info.ModTime()) {
		t.Error("existing txt was rewritten")
	}

	job := h.job()
	job.Overwrite = true
	if _, err := h.orch.Run(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if h.client.callCount() != 4 {
		t.Errorf("overwrite run calls = %d, want 4", h.client.callCount())
	}
}

func TestRunAuthAbort(t *testing.T) {
	h := newHarness(t, 1, "1.mp3", "2.mp3", "3.mp3", "4.mp3")
	h.client.handle = func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
		if req.Source.Name() == "2.mp3" {
			return nil, &domain.TranscriptionError{Kind: domain.KindAuth, StatusCode: 401, Message: "Invalid credentials."}
		}
		return &domain.TranscriptResult{Source: req.Source, Text: "ok"}, nil
	}

	res, err := h.orch.Run(context.Background(), h.job())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	want := []domain.ErrorKind{"", domain.KindAuth, domain.KindSkippedDueToAbort, domain.KindSkippedDueToAbort}
	for i, k := range kinds(res) {
		if k != want[i] {
			t.Errorf("Outcomes[%d].Kind = %q, want %q", i, k, want[i])
		}
	}
	if h.client.callCount() != 2 {
		t.Errorf("client calls = %d, want 2", h.client.callCount())
	}
	if res.State != StateAborted || h.orch.State() != StateAborted {
		t.Errorf("state = %s", res.State)
	}
	if ExitCode(res, err) != ExitAborted {
		t.Errorf("ExitCode() = %d", ExitCode(res, err))
	}
	if len(h.events) != 5 {
		t.Errorf("got %d events, want 5", len(h.events))
	}
	h.assertTempCleaned(t)
}

func TestRunCancellation(t *testing.T) {
	h := newHarness(t, 1, "a.mp3", "b.mp3", "c.mp3")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.client.handle = func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
		if req.Source.Name() == "b.mp3" {
			cancel()
			return nil, ctx.Err()
		}
		return &domain.TranscriptResult{Source: req.Source, Text: "ok"}, nil
	}

	res, err := h.orch.Run(ctx, h.job())
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	want := []domain.ErrorKind{"", domain.KindSkippedDueToCancellation, domain.KindSkippedDueToCancellation}
	for i, k := range kinds(res) {
		if k != want[i] {
			t.Errorf("Outcomes[%d].Kind = %q, want %q", i, k, want[i])
		}
	}
	if res.State != StateCancelled {
		t.Errorf("State = %s", res.State)
	}
	if ExitCode(res, err) != ExitCancelled {
		t.Errorf("ExitCode() = %d", ExitCode(res, err))
	}
	h.assertTempCleaned(t)
}

func TestRunRecoversPanic(t *testing.T) {
	h := newHarness(t, 1, "a.mp3", "b.mp3", "c.mp3")
	h.client.handle = func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
		if req.Source.Name() == "a.mp3" {
			var m map[string]int
			m["boom"]++
		}
		return &domain.TranscriptResult{Source: req.Source}, nil
	}

	res, err := h.orch.Run(context.Background(), h.job())
	if err == nil {
		t.Fatal("expected abort error")
	}
	want := []domain.ErrorKind{domain.KindInternal, domain.KindSkippedDueToAbort, domain.KindSkippedDueToAbort}
	for i, k := range kinds(res) {
		if k != want[i] {
			t.Errorf("Outcomes[%d].Kind = %q, want %q", i, k, want[i])
		}
	}
	if res.State != StateAborted {
		t.Errorf("State = %s", res.State)
	}
	h.assertTempCleaned(t)
}

func TestRunWorkersKeepDiscoveryOrder(t *testing.T) {
	names := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3", "f.mp3"}
	h := newHarness(t, 3, names...)

	var active, peak int32
	h.client.handle = func(ctx context.Context, req deepgram.Request) (*domain.TranscriptResult, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &domain.TranscriptResult{Source: req.Source, Text: req.Source.Name()}, nil
	}

	res, err := h.orch.Run(context.Background(), h.job())
	if err != nil {
		t.Fatal(err)
	}
	for i, o := range res.Outcomes {
		if o.Input.Name() != names[i] || !o.Succeeded() {
			t.Errorf("Outcomes[%d] = %s %s", i, o.Input.Name(), o.Status)
		}
	}
	if p := atomic.LoadInt32(&peak); p > 3 || p < 2 {
		t.Errorf("peak concurrency = %d, want 2..3", p)
	}
}

func TestRunAgainstDeepgramServer(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"metadata":{"request_id":"r1","duration":2},
			"results":{"channels":[{"alternatives":[{"transcript":"日本語 — “quoted” text","confidence":0.9}]}]}}`))
	}))
	defer srv.Close()

	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	for _, name := range []string{"a.mp4", "b.txt"} {
		if err := os.WriteFile(filepath.Join(in, name), []byte("media"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	client := deepgram.New(deepgram.Options{
		BaseURL:        srv.URL,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}, logger.Nop())
	ext := &fakeExtractor{dir: t.TempDir()}
	orch := New(ext, client, renderer.New(renderer.Options{FontDirs: []string{}}, logger.Nop()), logger.Nop(), Options{})

	res, err := orch.Run(context.Background(), domain.NewJob(in, out, "key", "auto"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Outcomes) != 1 || !res.Outcomes[0].Succeeded() {
		t.Fatalf("Outcomes = %+v", res.Outcomes)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("hits = %d, want 3", n)
	}

	arts := res.Outcomes[0].Artifacts
	for _, p := range []string{arts.TxtPath, arts.JSONPath, arts.PDFPath} {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			t.Errorf("artifact %s missing or empty: %v", p, err)
		}
	}
	txt, _ := os.ReadFile(arts.TxtPath)
	if string(txt) != "日本語 — “quoted” text" {
		t.Errorf("txt = %q", txt)
	}
}

func TestRunCachedOutputsStayWithTheirSource(t *testing.T) {
	h := newHarness(t, 1, "a_b.wav")
	if _, err := h.orch.Run(context.Background(), h.job()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(h.in, "a b.mp4"), []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := h.orch.Run(context.Background(), h.job())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	byName := map[string]Outcome{}
	for _, o := range res.Outcomes {
		byName[o.Input.Name()] = o
	}
	old, added := byName["a_b.wav"], byName["a b.mp4"]
	if old.BaseName != "a_b" || !old.Cached {
		t.Errorf("a_b.wav base=%q cached=%v, want a_b cached", old.BaseName, old.Cached)
	}
	if added.BaseName == "a_b" || added.Cached || !added.Succeeded() || added.Artifacts == nil {
		t.Fatalf("a b.mp4 base=%q cached=%v status=%s, want fresh transcript under its own name", added.BaseName, added.Cached, added.Status)
	}

	h.client.mu.Lock()
	calls := append([]string(nil), h.client.calls...)
	h.client.mu.Unlock()
	if len(calls) != 2 || calls[1] != "a b.mp4" {
		t.Errorf("client calls = %v, want a_b.wav then a b.mp4", calls)
	}

	oldTxt, _ := os.ReadFile(filepath.Join(h.out, "txt", "a_b.txt"))
	if string(oldTxt) != "text of a_b.wav" {
		t.Errorf("a_b.txt = %q", oldTxt)
	}
	newTxt, _ := os.ReadFile(added.Artifacts.TxtPath)
	if string(newTxt) != "text of a b.mp4" {
		t.Errorf("%s = %q", added.Artifacts.TxtPath, newTxt)
	}
}

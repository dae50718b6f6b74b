package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelmark/internal/audio"
	"reelmark/internal/services"
)

type fakeTranscriber struct {
	mu         sync.Mutex
	inFlight   int32
	peak       int32
	started    []time.Time
	delay      time.Duration
	transcribe func(path string) (*Result, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		observed := atomic.LoadInt32(&f.peak)
		if current <= observed || atomic.CompareAndSwapInt32(&f.peak, observed, current) {
			break
		}
	}
	f.mu.Lock()
	f.started = append(f.started, time.Now())
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.transcribe(audioPath)
}

func makeChunks(n int) []audio.Chunk {
	chunks := make([]audio.Chunk, n)
	for i := range chunks {
		chunks[i] = audio.Chunk{Path: "chunk.m4a", Index: i, Start: float64(i) * 600, End: float64(i+1) * 600}
	}
	return chunks
}

func TestPipelineOrdersResultsByChunkIndex(t *testing.T) {
	// Later chunks finish before earlier ones.
	var submissions int32
	fake := &fakeTranscriber{}
	fake.transcribe = func(path string) (*Result, error) {
		order := atomic.AddInt32(&submissions, 1)
		if order == 1 {
			time.Sleep(30 * time.Millisecond)
		}
		return &Result{Text: "text", Language: "en"}, nil
	}

	pipeline, err := NewPipeline(fake, PipelineConfig{MaxConcurrent: 3, SubmissionDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	results, err := pipeline.Transcribe(context.Background(), makeChunks(4))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, result := range results {
		if result.ChunkIndex != i {
			t.Errorf("result %d has chunk index %d", i, result.ChunkIndex)
		}
	}
}

func TestPipelineConcurrencyCap(t *testing.T) {
	fake := &fakeTranscriber{delay: 40 * time.Millisecond}
	fake.transcribe = func(path string) (*Result, error) {
		return &Result{Text: "text"}, nil
	}

	pipeline, err := NewPipeline(fake, PipelineConfig{MaxConcurrent: 2, SubmissionDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := pipeline.Transcribe(context.Background(), makeChunks(6)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if peak := atomic.LoadInt32(&fake.peak); peak > 2 {
		t.Errorf("peak concurrency %d exceeds cap 2", peak)
	}
}

func TestPipelineSpacesSubmissions(t *testing.T) {
	fake := &fakeTranscriber{}
	fake.transcribe = func(path string) (*Result, error) {
		return &Result{Text: "text"}, nil
	}

	spacing := 25 * time.Millisecond
	pipeline, err := NewPipeline(fake, PipelineConfig{MaxConcurrent: 3, SubmissionDelay: spacing})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := pipeline.Transcribe(context.Background(), makeChunks(3)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.started) != 3 {
		t.Fatalf("got %d submissions, want 3", len(fake.started))
	}
	for i := 1; i < len(fake.started); i++ {
		if gap := fake.started[i].Sub(fake.started[i-1]); gap < spacing-5*time.Millisecond {
			t.Errorf("submission gap %d was %v, want at least %v", i, gap, spacing)
		}
	}
}

func TestPipelineSurfacesRateLimit(t *testing.T) {
	var calls int32
	fake := &fakeTranscriber{}
	fake.transcribe = func(path string) (*Result, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			return nil, services.Wrap(services.ErrRateLimited, "speech", "submit", "throttled by provider", nil)
		}
		return &Result{Text: "text"}, nil
	}

	pipeline, err := NewPipeline(fake, PipelineConfig{MaxConcurrent: 1, SubmissionDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	_, err = pipeline.Transcribe(context.Background(), makeChunks(5))
	if !services.IsRateLimited(err) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestPipelineRejectsEmptyInput(t *testing.T) {
	fake := &fakeTranscriber{transcribe: func(path string) (*Result, error) { return &Result{}, nil }}
	pipeline, err := NewPipeline(fake, PipelineConfig{SubmissionDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := pipeline.Transcribe(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToDocumentAppliesChunkOffsets(t *testing.T) {
	results := []Result{
		{ChunkIndex: 0, Segments: []Segment{{Start: 0, End: 2, Text: "first chunk"}}},
		{ChunkIndex: 1, Segments: []Segment{{Start: 1, End: 3, Text: "second chunk"}}},
	}
	document := ToDocument(results, []float64{0, 600})

	if !strings.HasPrefix(document, "WEBVTT") {
		t.Fatalf("document missing header:\n%s", document)
	}
	if !strings.Contains(document, "00:00:00.000 --> 00:00:02.000") {
		t.Errorf("first chunk cue missing:\n%s", document)
	}
	if !strings.Contains(document, "00:10:01.000 --> 00:10:03.000") {
		t.Errorf("offset cue missing:\n%s", document)
	}
}

func TestLanguagePicksFirstDetection(t *testing.T) {
	results := []Result{{Language: ""}, {Language: "de"}, {Language: "en"}}
	if got := Language(results); got != "de" {
		t.Errorf("Language = %q, want de", got)
	}
}

func TestNewPipelineDelayDefaults(t *testing.T) {
	client := &fakeTranscriber{transcribe: func(string) (*Result, error) { return &Result{}, nil }}

	p, err := NewPipeline(client, PipelineConfig{SubmissionDelay: -1})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.delay != defaultSubmissionDelay {
		t.Errorf("negative delay = %v, want default %v", p.delay, defaultSubmissionDelay)
	}

	p, err = NewPipeline(client, PipelineConfig{SubmissionDelay: 0})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.delay != 0 {
		t.Errorf("zero delay = %v, want spacing disabled", p.delay)
	}
}

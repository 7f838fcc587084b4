package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"renohub/internal/records"
	"renohub/internal/records/memory"
)

func rec(id, title string) records.Record {
	return records.Record{ID: id, Properties: map[string]records.Property{"Name": records.Title(title)}}
}

type failingStore struct{ fail string }

func (f failingStore) FetchAll(ctx context.Context, id string, q records.Query) ([]records.Record, error) {
	if id == f.fail {
		return nil, errors.New("upstream unavailable")
	}
	return []records.Record{rec(id+"-1", "x")}, nil
}

type countingWriter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (w *countingWriter) Replace(ctx context.Context, id string, recs []records.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.calls == nil {
		w.calls = map[string]int{}
	}
	w.calls[id]++
	return nil
}

func (w *countingWriter) count(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[id]
}

func TestMirror_RunOnce(t *testing.T) {
	source := memory.New(map[string][]records.Record{
		"db-milestones": {rec("m1", "Demolition"), rec("m2", "Electrical")},
		"db-payments":   {rec("p1", "Tranche 1")},
	})
	target := memory.New(nil)

	m := NewMirror(source, target, MirrorConfig{Mappings: []Mapping{
		{Source: "db-milestones", Target: "milestones"},
		{Source: "db-payments", Target: "payments"},
	}}, nil)

	results, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(results) != 2 || results[0].Records != 2 || results[1].Target != "payments" {
		t.Fatalf("results = %+v", results)
	}

	got, err := target.FetchAll(context.Background(), "milestones", records.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || records.FirstText(got[1], "Name") != "Electrical" {
		t.Errorf("mirrored = %+v", got)
	}
}

func TestMirror_FailedFetchWritesNothing(t *testing.T) {
	w := &countingWriter{}
	m := NewMirror(failingStore{fail: "b"}, w, MirrorConfig{Mappings: []Mapping{
		{Source: "a", Target: "a"},
		{Source: "b", Target: "b"},
	}}, nil)

	if _, err := m.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if w.count("a") != 0 || w.count("b") != 0 {
		t.Errorf("writer called on failed run: %v", w.calls)
	}
}

func TestMirror_NoMappings(t *testing.T) {
	m := NewMirror(memory.New(nil), memory.New(nil), MirrorConfig{}, nil)
	if _, err := m.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaultMirrorConfig(t *testing.T) {
	config := DefaultMirrorConfig()
	if config.Interval != 15*time.Minute {
		t.Errorf("expected Interval 15m, got %v", config.Interval)
	}
	if config.Concurrency != 4 {
		t.Errorf("expected Concurrency 4, got %d", config.Concurrency)
	}
}

func TestMirror_StartStop(t *testing.T) {
	w := &countingWriter{}
	m := NewMirror(failingStore{}, w, MirrorConfig{
		Mappings: []Mapping{{Source: "a", Target: "a"}},
		Interval: 10 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if m.IsRunning() {
		t.Fatal("mirror should not be running initially")
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Error("expected error when starting a running mirror")
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.count("a") < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.count("a") < 2 {
		t.Fatalf("expected repeated runs, got %d", w.count("a"))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := m.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.IsRunning() {
		t.Error("mirror should not be running after Stop")
	}
	if err := m.Stop(stopCtx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

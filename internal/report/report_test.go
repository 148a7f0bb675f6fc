package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evalf/examples-gallery/internal/store"
)

func sampleRuns() []*store.Run {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []*store.Run{
		{ExampleID: "official-laplace", Image: "nutils:7", Revision: "aaa", Status: store.StatusPassed, FinishedAt: at},
		{ExampleID: "official-laplace", Image: "nutils:8", Revision: "aaa", Status: store.StatusFailed, Message: "exit status 1", FinishedAt: at},
		{ExampleID: "user-cavity", Image: "nutils:7", Status: store.StatusFetchFailed, FinishedAt: at},
		{ExampleID: "user-beam", Image: "nutils:7", Status: store.StatusSandboxError, FinishedAt: at},
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleRuns())

	laplace := r.Lookup("official-laplace")
	if laplace == nil {
		t.Fatal("missing entry for official-laplace")
	}
	if laplace.FetchFailed {
		t.Error("official-laplace marked fetch_failed")
	}
	if got := laplace.Images(); len(got) != 2 || got[0] != "nutils:7" || got[1] != "nutils:8" {
		t.Errorf("Images() = %v", got)
	}
	if !laplace.Revisions["nutils:7"].Passed || laplace.Revisions["nutils:8"].Passed {
		t.Errorf("Revisions = %+v", laplace.Revisions)
	}

	cavity := r.Lookup("user-cavity")
	if cavity == nil || !cavity.FetchFailed || len(cavity.Revisions) != 0 {
		t.Errorf("user-cavity = %+v, want fetch_failed without revisions", cavity)
	}

	beam := r.Lookup("user-beam")
	if beam == nil || beam.FetchFailed || len(beam.Revisions) != 0 {
		t.Errorf("user-beam = %+v, want an entry without a verdict", beam)
	}

	if r.Lookup("unknown") != nil {
		t.Error("Lookup(unknown) should be nil")
	}
	var nilReport *Report
	if nilReport.Lookup("x") != nil {
		t.Error("Lookup on nil report should be nil")
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "status.json")
	original := Build(sampleRuns())

	if err := Write(path, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Examples) != len(original.Examples) {
		t.Errorf("read %d examples, wrote %d", len(got.Examples), len(original.Examples))
	}
	rev := got.Lookup("official-laplace").Revisions["nutils:8"]
	if rev.Message != "exit status 1" || rev.Revision != "aaa" {
		t.Errorf("round-tripped revision = %+v", rev)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, Build(nil)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Examples) != 0 {
		t.Errorf("Examples = %v, want empty", got.Examples)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Read(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("Read(absent) should fail")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := Read(bad); err == nil {
		t.Error("Read(corrupt) should fail")
	}
}

func TestFromStore(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.CreateSchema(); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertExample(&store.Example{ID: "user-a", Name: "A", Kind: "user", Repository: "r", Revision: "main", Script: "s.py"}); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := s.InsertRun(&store.Run{ExampleID: "user-a", Image: "img", Revision: "abc", Status: store.StatusPassed, StartedAt: now, FinishedAt: now}); err != nil {
		t.Fatal(err)
	}

	r, err := FromStore(s)
	if err != nil {
		t.Fatalf("FromStore() error = %v", err)
	}
	if !r.Lookup("user-a").Revisions["img"].Passed {
		t.Error("passed run missing from report")
	}
}

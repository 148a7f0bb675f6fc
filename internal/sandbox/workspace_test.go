package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWorkspaceCommitSuccess(t *testing.T) {
	ws := &Workspace{Root: filepath.Join(t.TempDir(), "site")}
	st, err := ws.Begin("user-demo")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(st.Dir), ".user-demo.tmp-") {
		t.Errorf("staging dir = %s", st.Dir)
	}
	writeFile(t, filepath.Join(st.Dir, "log.html"), "<html></html>")

	res := &Result{State: Succeeded, Finished: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	final, err := st.Commit(res, Marker{Commit: "abc", Image: "img:7", Script: "demo.py"})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if final != ws.Dir("user-demo") {
		t.Errorf("final = %s, want %s", final, ws.Dir("user-demo"))
	}
	if _, err := os.Stat(filepath.Join(final, "log.html")); err != nil {
		t.Errorf("log not published: %v", err)
	}
	if _, err := os.Stat(st.Dir); !os.IsNotExist(err) {
		t.Error("staging directory left behind")
	}

	m, err := ws.ReadMarker("user-demo")
	if err != nil || m == nil {
		t.Fatalf("ReadMarker() = %v, %v", m, err)
	}
	if !m.Finished.Equal(res.Finished) {
		t.Errorf("marker Finished = %v", m.Finished)
	}
	if !ws.Reusable("user-demo", "abc", "img:7") {
		t.Error("Reusable() = false for a matching marker")
	}
	if ws.Reusable("user-demo", "def", "img:7") {
		t.Error("Reusable() = true for a different commit")
	}
	if ws.Reusable("user-demo", "abc", "img:8") {
		t.Error("Reusable() = true for a different image")
	}
}

func TestWorkspaceFailedRunIsNotReusable(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	st, err := ws.Begin("user-demo")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(st.Dir, "log.html"), "partial")

	if _, err := st.Commit(&Result{State: Failed}, Marker{Commit: "abc", Image: "img"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Dir("user-demo"), MarkerFile)); !os.IsNotExist(err) {
		t.Error("marker written for a failed run")
	}
	if ws.Reusable("user-demo", "abc", "img") {
		t.Error("partial output counted as reusable")
	}
}

func TestWorkspaceReplacesPreviousOutput(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	ok := &Result{State: Succeeded, Finished: time.Now()}

	first, _ := ws.Begin("x")
	writeFile(t, filepath.Join(first.Dir, "old.png"), "old")
	if _, err := first.Commit(ok, Marker{Commit: "1"}); err != nil {
		t.Fatal(err)
	}

	second, _ := ws.Begin("x")
	writeFile(t, filepath.Join(second.Dir, "new.png"), "new")
	if _, err := second.Commit(&Result{State: Failed}, Marker{Commit: "2"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.Dir("x"), "old.png")); !os.IsNotExist(err) {
		t.Error("previous output survived")
	}
	if _, err := os.Stat(filepath.Join(ws.Dir("x"), "new.png")); err != nil {
		t.Error("new output missing")
	}
	if ws.Reusable("x", "1", "") {
		t.Error("stale marker survived replacement")
	}

	entries, _ := os.ReadDir(ws.Root)
	if len(entries) != 1 {
		t.Errorf("root has %d entries, want only the final directory", len(entries))
	}
}

func TestStagingDiscard(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	st, err := ws.Begin("x")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, err := os.Stat(st.Dir); !os.IsNotExist(err) {
		t.Error("staging directory not removed")
	}
	if _, err := os.Stat(ws.Dir("x")); !os.IsNotExist(err) {
		t.Error("discard published a directory")
	}
	if _, err := st.Commit(nil, Marker{}); err == nil {
		t.Error("Commit after Discard should fail")
	}
}

func TestReadMarkerMissingAndCorrupt(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	if m, err := ws.ReadMarker("absent"); m != nil || err != nil {
		t.Errorf("ReadMarker(absent) = %v, %v", m, err)
	}

	if err := os.MkdirAll(ws.Dir("bad"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(ws.Dir("bad"), MarkerFile), "{not json")
	if _, err := ws.ReadMarker("bad"); err == nil {
		t.Error("expected an error for a corrupt marker")
	}
	if ws.Reusable("bad", "", "") {
		t.Error("corrupt marker counted as reusable")
	}
}

package server

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/graph"
)

func readDocument(path string) (*graph.Graph, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, gerrors.Wrap(gerrors.ErrCodeFileNotFound, err, "%s", path)
	}
	g, err := graph.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return g, data, nil
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestWatchFileReloads(t *testing.T) {
	g, doc := testGraph(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := WatchFile(context.Background(), path, readDocument, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cur, _, _ := w.Load(context.Background())
	if cur.PrimaryCount() != g.PrimaryCount() {
		t.Fatalf("initial primary = %d", cur.PrimaryCount())
	}

	if err := g.AddPrimary(graph.PrimaryNode{ID: "c", ParentID: "root", Depth: 1}); err != nil {
		t.Fatal(err)
	}
	grown, err := graph.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, grown, 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, func() bool {
		cur, _, _ := w.Load(context.Background())
		return cur.PrimaryCount() == 4
	})
	if !ok {
		t.Fatal("document was not reloaded")
	}
}

func TestWatchFileKeepsDocumentOnBadWrite(t *testing.T) {
	_, doc := testGraph(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	attempts := make(chan struct{}, 1)
	read := func(p string) (*graph.Graph, []byte, error) {
		g, data, err := readDocument(p)
		if err != nil {
			select {
			case attempts <- struct{}{}:
			default:
			}
		}
		return g, data, err
	}
	w, err := WatchFile(context.Background(), path, read, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-attempts:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload attempt")
	}

	_, cur, _ := w.Load(context.Background())
	if !bytes.Equal(cur, doc) {
		t.Errorf("document replaced by invalid write: %s", cur)
	}
}

func TestWatchFileMissing(t *testing.T) {
	_, err := WatchFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"), readDocument, nil)
	if !gerrors.Is(err, gerrors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestWatchFileStopsWithContext(t *testing.T) {
	_, doc := testGraph(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := WatchFile(ctx, path, readDocument, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	ok := waitFor(t, func() bool {
		select {
		case <-w.stop:
			return true
		default:
			return false
		}
	})
	if !ok {
		t.Error("watcher still running after cancel")
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close after cancel: %v", err)
	}
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlreadyKyle/layer-playable-ads/internal/compliance"
)

func TestWriteAndReadBack(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore returned error: %v", err)
	}

	path, err := store.Write(context.Background(), "build-1/index.html", []byte("<html></html>"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if want := filepath.Join(store.BasePath(), "build-1", "index.html"); path != want {
		t.Fatalf("Write returned %q, want %q", path, want)
	}
	// The returned path must be directly readable by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore returned error: %v", err)
	}
	if _, err := store.Write(context.Background(), "../escape.html", []byte("x")); err == nil {
		t.Fatal("expected error for traversal key")
	}
	if _, err := store.Write(context.Background(), "  ", []byte("x")); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestWriteExportLaysOutByNetwork(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore returned error: %v", err)
	}

	pkg := compliance.ExportPackage{NetworkID: "vungle", Filename: "ad.html", Data: []byte("<html></html>")}
	path, err := store.WriteExport(context.Background(), "build-7", pkg)
	if err != nil {
		t.Fatalf("WriteExport returned error: %v", err)
	}
	if want := filepath.Join(store.BasePath(), "build-7", "vungle", "ad.html"); path != want {
		t.Fatalf("WriteExport returned %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
}

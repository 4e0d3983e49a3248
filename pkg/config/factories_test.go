package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/marmos91/dittohttp/pkg/metrics"
)

func writeSeedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return dir
}

func readID(t *testing.T, store content.ContentStore, id content.ContentID) string {
	t.Helper()
	r, err := store.ReadContent(context.Background(), id)
	if err != nil {
		t.Fatalf("ReadContent(%s) failed: %v", id, err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(data)
}

func TestCreateContentStore_Filesystem(t *testing.T) {
	dir := writeSeedDir(t)
	cfg := &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": dir},
	}

	store, err := CreateContentStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem content store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if got := readID(t, store, "index.html"); got != "<h1>hi</h1>" {
		t.Errorf("Unexpected content %q", got)
	}
}

func TestCreateContentStore_FilesystemMissingPath(t *testing.T) {
	cfg := &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	if _, err := CreateContentStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing path, got nil")
	}
}

func TestCreateContentStore_Memory(t *testing.T) {
	cfg := &ContentConfig{Type: "memory"}

	store, err := CreateContentStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory content store: %v", err)
	}
	defer func() { _ = store.Close() }()

	exists, err := store.ContentExists(context.Background(), "index.html")
	if err != nil {
		t.Fatalf("ContentExists failed: %v", err)
	}
	if exists {
		t.Error("Expected an empty store")
	}
}

func TestCreateContentStore_MemorySeeded(t *testing.T) {
	cfg := &ContentConfig{
		Type:   "memory",
		Memory: map[string]any{"seed_dir": writeSeedDir(t)},
	}

	store, err := CreateContentStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory content store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if got := readID(t, store, "index.html"); got != "<h1>hi</h1>" {
		t.Errorf("Unexpected content %q", got)
	}
}

func TestCreateContentStore_MemoryBadSeedDir(t *testing.T) {
	cfg := &ContentConfig{
		Type:   "memory",
		Memory: map[string]any{"seed_dir": filepath.Join(t.TempDir(), "missing")},
	}

	if _, err := CreateContentStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing seed directory, got nil")
	}
}

func TestCreateContentStore_BadgerInMemory(t *testing.T) {
	cfg := &ContentConfig{
		Type: "badger",
		// String values come from environment variables
		Badger: map[string]any{"in_memory": "true", "seed_dir": writeSeedDir(t)},
	}

	store, err := CreateContentStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger content store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if got := readID(t, store, "index.html"); got != "<h1>hi</h1>" {
		t.Errorf("Unexpected content %q", got)
	}
}

func TestCreateContentStore_BadgerMissingPath(t *testing.T) {
	cfg := &ContentConfig{Type: "badger", Badger: map[string]any{}}

	if _, err := CreateContentStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing db_path, got nil")
	}
}

func TestCreateContentStore_S3MissingBucket(t *testing.T) {
	cfg := &ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}

	if _, err := CreateContentStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing bucket, got nil")
	}
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	cfg := &ContentConfig{Type: "unknown"}

	if _, err := CreateContentStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown content store type, got nil")
	}
}

func TestCreateContentStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &ContentConfig{
		Type:   "memory",
		Memory: map[string]any{"seed_dir": writeSeedDir(t)},
	}

	if _, err := CreateContentStore(ctx, cfg); err == nil {
		t.Fatal("Expected error when seeding with a cancelled context, got nil")
	}
}

func TestCreateAdapter(t *testing.T) {
	cfg := GetDefaultConfig()

	a, err := CreateAdapter(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapter failed: %v", err)
	}
	if a.Protocol() != "HTTP" {
		t.Errorf("Expected protocol HTTP, got %q", a.Protocol())
	}
	if a.Port() != DefaultHTTPPort {
		t.Errorf("Expected port %d, got %d", DefaultHTTPPort, a.Port())
	}

	cfg.Adapters.HTTP.Enabled = false
	if _, err := CreateAdapter(cfg, nil); err == nil {
		t.Error("Expected error for disabled adapter, got nil")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.HTTPMetrics == nil {
		t.Fatal("Expected no-op HTTP metrics, got nil")
	}
	if result.HTTPMetrics != metrics.NewNoopHTTPMetrics() {
		t.Error("Expected the no-op implementation")
	}
}

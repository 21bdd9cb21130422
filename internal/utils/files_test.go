package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/llmclean-cli/internal/utils"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := utils.SafeWriteFile(p, []byte("new")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "new" {
		t.Fatalf("unexpected content %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be cleaned up, found %d entries", len(entries))
	}
}

func TestEnsureDirNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := utils.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}

package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSumKnownVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	sum, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}

	// sha256("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if sum != want {
		t.Fatalf("digest mismatch: got %s, want %s", sum, want)
	}
}

func TestSumEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	sum, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}

	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if sum != want {
		t.Fatalf("digest mismatch: got %s, want %s", sum, want)
	}
}

func TestSumDeterministicOverLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.bin")
	data := make([]byte, chunkSize*3+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	first, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	second, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if first != second {
		t.Fatalf("digest not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

func TestSumMissingFile(t *testing.T) {
	if _, err := Sum(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package analysis

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestShannonEntropy(t *testing.T) {
	if e := shannonEntropy(nil); e != 0 {
		t.Errorf("entropy of empty data = %f, want 0", e)
	}
	if e := shannonEntropy(bytes.Repeat([]byte{0x41}, 4096)); e != 0 {
		t.Errorf("entropy of constant data = %f, want 0", e)
	}

	// All 256 byte values equally often: exactly 8 bits per byte.
	uniform := make([]byte, 256*16)
	for i := range uniform {
		uniform[i] = byte(i % 256)
	}
	if e := shannonEntropy(uniform); math.Abs(e-8.0) > 1e-9 {
		t.Errorf("entropy of uniform data = %f, want 8.0", e)
	}

	// Two symbols, even split: one bit.
	half := append(bytes.Repeat([]byte{0}, 512), bytes.Repeat([]byte{1}, 512)...)
	if e := shannonEntropy(half); math.Abs(e-1.0) > 1e-9 {
		t.Errorf("entropy of two-symbol data = %f, want 1.0", e)
	}
}

func TestAnalyzeBinaryNonPESuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dropper.so")
	if err := os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F'}, 0644); err != nil {
		t.Fatal(err)
	}

	feats, err := AnalyzeBinary(path)
	if err != nil {
		t.Fatalf("non-PE suffix must not be parsed: %v", err)
	}
	if len(feats.Imports) != 0 || len(feats.Sections) != 0 {
		t.Errorf("expected empty features for unparsed binary, got %+v", feats)
	}
}

func TestAnalyzeBinaryCorruptPE(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.exe")
	if err := os.WriteFile(path, []byte("MZ garbage, not a real PE"), 0644); err != nil {
		t.Fatal(err)
	}

	feats, err := AnalyzeBinary(path)
	if err == nil {
		t.Fatal("expected parse error for corrupt PE")
	}
	if feats == nil {
		t.Fatal("partial features must be returned alongside the error")
	}
}

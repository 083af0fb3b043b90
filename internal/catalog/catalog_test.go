package catalog_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"dupscan/internal/catalog"
	"dupscan/internal/config"
	"dupscan/internal/logging"
)

func encodePNG(t *testing.T, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func gradient(x, y int) color.Color {
	return color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 40, A: 255}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newScanner(t *testing.T, mutate func(*config.Catalog)) *catalog.Scanner {
	t.Helper()
	cfg := config.Default().Catalog
	if mutate != nil {
		mutate(&cfg)
	}
	return catalog.New(cfg, logging.NewNop())
}

func TestScanBuildsOrderedRecords(t *testing.T) {
	root := t.TempDir()
	imgData := encodePNG(t, gradient)
	writeFile(t, filepath.Join(root, "b.png"), imgData)
	writeFile(t, filepath.Join(root, "nested", "a.png"), imgData)
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("not an image"))

	result, err := newScanner(t, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2 (txt excluded)", len(result.Records))
	}
	if len(result.Problems) != 0 {
		t.Fatalf("problems = %v", result.Problems)
	}

	first, second := result.Records[0], result.Records[1]
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d, want sequential from 1", first.ID, second.ID)
	}
	if first.Path > second.Path {
		t.Fatalf("records not path ordered: %q then %q", first.Path, second.Path)
	}
	if first.ContentHash == "" || first.ContentHash != second.ContentHash {
		t.Fatalf("identical files should share a content hash: %q vs %q", first.ContentHash, second.ContentHash)
	}
	if first.Signature == "" || first.Signature != second.Signature {
		t.Fatalf("identical images should share a signature: %q vs %q", first.Signature, second.Signature)
	}
	if first.Width != 32 || first.Height != 24 {
		t.Fatalf("dimensions = %dx%d, want 32x24", first.Width, first.Height)
	}
	if first.Size == 0 || first.ModifiedAt.IsZero() {
		t.Fatalf("missing stat fields: %+v", first)
	}
}

func TestScanSkipsHiddenUnlessConfigured(t *testing.T) {
	root := t.TempDir()
	imgData := encodePNG(t, gradient)
	writeFile(t, filepath.Join(root, "visible.png"), imgData)
	writeFile(t, filepath.Join(root, ".hidden.png"), imgData)
	writeFile(t, filepath.Join(root, ".cache", "stashed.png"), imgData)

	result, err := newScanner(t, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want only the visible file", len(result.Records))
	}

	result, err = newScanner(t, func(cfg *config.Catalog) { cfg.IncludeHidden = true }).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan with hidden: %v", err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("records = %d, want 3 with hidden included", len(result.Records))
	}
}

func TestScanHonorsMaxFiles(t *testing.T) {
	root := t.TempDir()
	imgData := encodePNG(t, gradient)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeFile(t, filepath.Join(root, name), imgData)
	}

	result, err := newScanner(t, func(cfg *config.Catalog) { cfg.MaxFiles = 2 }).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want capped at 2", len(result.Records))
	}
	if !result.Truncated {
		t.Fatal("expected truncation flag")
	}
}

func TestScanRecordsProblemsForBrokenImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.png"), []byte("definitely not a png"))

	result, err := newScanner(t, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want broken file still cataloged", len(result.Records))
	}
	record := result.Records[0]
	if record.ContentHash == "" {
		t.Fatal("hash should succeed even when decoding fails")
	}
	if record.Signature != "" {
		t.Fatalf("signature = %q, want empty for undecodable image", record.Signature)
	}
	if len(result.Problems) != 1 {
		t.Fatalf("problems = %v, want one decode failure", result.Problems)
	}
}

func TestScanDifferentImagesDifferentSignatures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "grad.png"), encodePNG(t, gradient))
	writeFile(t, filepath.Join(root, "checker.png"), encodePNG(t, func(x, y int) color.Color {
		if (x/4+y/4)%2 == 0 {
			return color.White
		}
		return color.Black
	}))

	result, err := newScanner(t, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
	if result.Records[0].Signature == result.Records[1].Signature {
		t.Fatalf("distinct images share signature %q", result.Records[0].Signature)
	}
}

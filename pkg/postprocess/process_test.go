package postprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.WriteFile(path, encodePNG(t, w, h), 0o644); err != nil {
		t.Fatal(err)
	}
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Expected %s to exist: %v", path, err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Expected %s to be a PNG: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessResizeAndWebP(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "example.com_initial.png"), 1600, 1200)
	writePNG(t, filepath.Join(dir, "example.com_final.png"), 1600, 1200)

	report, err := Process(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := Report{Images: 2, Resized: 2, Converted: 2}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("Unexpected report (-want +got):\n%s", diff)
	}

	w, h := decodeSize(t, filepath.Join(dir, ResizedDir, "example.com_initial.png"))
	if w != 800 || h != 600 {
		t.Errorf("Expected resized image 800x600, got %dx%d", w, h)
	}

	wantWebP := []string{"example.com_final.webp", "example.com_initial.webp"}
	if diff := cmp.Diff(wantWebP, listDir(t, filepath.Join(dir, WebPDir))); diff != "" {
		t.Errorf("Unexpected webp files (-want +got):\n%s", diff)
	}
}

func TestProcessWebPOnly(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 640, 480)

	opts := DefaultOptions()
	opts.Resize = false

	report, err := Process(dir, opts)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Converted != 1 || report.Resized != 0 {
		t.Errorf("Expected 1 converted and 0 resized, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, ResizedDir)); !os.IsNotExist(err) {
		t.Errorf("Expected no resized directory, got %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, WebPDir, "a.webp"))
	if err != nil || fi.Size() == 0 {
		t.Errorf("Expected non-empty a.webp, got %v", err)
	}
}

func TestProcessResizeOnlyCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "good.png"), 1000, 500)
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.SaveWebP = false

	report, err := Process(dir, opts)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Resized != 1 || report.Failed != 1 {
		t.Errorf("Expected 1 resized and 1 failed, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, WebPDir)); !os.IsNotExist(err) {
		t.Errorf("Expected no webp directory, got %v", err)
	}
}

func TestProcessErrors(t *testing.T) {
	if _, err := Process(filepath.Join(t.TempDir(), "missing"), DefaultOptions()); !errors.Is(err, ErrNoDir) {
		t.Errorf("Expected ErrNoDir, got %v", err)
	}
	if _, err := Process(t.TempDir(), DefaultOptions()); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
}

func TestFindLatestDir(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"2024-01-02_10-00-00", "2025-03-04_09-30-00", "2025-03-04_09-30-00_1", "resized", "zzz"} {
		if err := os.Mkdir(filepath.Join(base, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindLatestDir(base)
	if err != nil {
		t.Fatalf("FindLatestDir: %v", err)
	}
	if want := filepath.Join(base, "2025-03-04_09-30-00_1"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, err := FindLatestDir(t.TempDir()); !errors.Is(err, ErrNoRuns) {
		t.Errorf("Expected ErrNoRuns, got %v", err)
	}
}

func TestLatestRun(t *testing.T) {
	root := t.TempDir()
	regular := filepath.Join(root, "screenshots")
	full := filepath.Join(root, "screenshots_full")

	older := filepath.Join(regular, "2025-01-01_00-00-00")
	newer := filepath.Join(full, "2024-06-01_00-00-00")
	for _, dir := range []string{older, newer} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now()
	if err := os.Chtimes(older, now, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	got, err := LatestRun(regular, full, filepath.Join(root, "screenshots_widescreen"))
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got != newer {
		t.Errorf("Expected %s, got %s", newer, got)
	}

	if _, err := LatestRun(filepath.Join(root, "nothing")); !errors.Is(err, ErrNoRuns) {
		t.Errorf("Expected ErrNoRuns, got %v", err)
	}
}

func TestAddTextToImage(t *testing.T) {
	out, err := AddTextToImage(encodePNG(t, 400, 300), "https://example.com:443/page/")
	if err != nil {
		t.Fatalf("AddTextToImage: %v", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Expected PNG output: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 341 {
		t.Errorf("Expected 400x341, got %dx%d", cfg.Width, cfg.Height)
	}

	if _, err := AddTextToImage([]byte("junk"), "https://example.com"); err == nil {
		t.Error("Expected error for non-PNG input")
	}
}

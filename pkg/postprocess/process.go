// Package postprocess turns a run directory of screenshots into resized PNG and WebP copies.
package postprocess

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/root4loot/goutils/log"
)

const (
	ResizedDir = "resized"
	WebPDir    = "webp"
)

var (
	ErrNoDir    = errors.New("screenshot directory does not exist")
	ErrNoImages = errors.New("no PNG images to process")
)

func init() {
	log.Init("sitesnap")
}

// Options select which outputs Process writes.
type Options struct {
	Resize      bool
	ResizeWidth int
	SaveWebP    bool
	Quality     float32 // WebP quality, 1..100
}

// DefaultOptions resizes to 800px wide and writes WebP at quality 90.
func DefaultOptions() Options {
	return Options{
		Resize:      true,
		ResizeWidth: 800,
		SaveWebP:    true,
		Quality:     90,
	}
}

// Report counts what Process produced.
type Report struct {
	Images    int
	Resized   int
	Converted int
	Failed    int
}

// Process reads the *.png files directly inside dir and writes dir/resized/<name>.png and
// dir/webp/<name>.webp. Per-image failures are logged and counted.
func Process(dir string, opts Options) (Report, error) {
	var report Report

	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return report, fmt.Errorf("%w: %s", ErrNoDir, dir)
	}

	originals, err := pngFiles(dir)
	if err != nil {
		return report, err
	}
	report.Images = len(originals)
	log.Infof("Found %d PNG images in %s", len(originals), dir)
	if len(originals) == 0 {
		return report, ErrNoImages
	}

	if opts.Resize {
		resizedDir := filepath.Join(dir, ResizedDir)
		if err := os.MkdirAll(resizedDir, 0o755); err != nil {
			return report, err
		}
		for _, src := range originals {
			dst := filepath.Join(resizedDir, filepath.Base(src))
			if err := resizeFile(src, dst, opts.ResizeWidth); err != nil {
				log.Errorf("Error resizing %s: %v", filepath.Base(src), err)
				report.Failed++
				continue
			}
			log.Debugf("Resized %s -> %s", filepath.Base(src), dst)
			report.Resized++
		}
	}

	if opts.SaveWebP {
		webpDir := filepath.Join(dir, WebPDir)
		if err := os.MkdirAll(webpDir, 0o755); err != nil {
			return report, err
		}

		sources := originals
		if opts.Resize {
			if sources, err = pngFiles(filepath.Join(dir, ResizedDir)); err != nil {
				return report, err
			}
		}

		// Without a resize pass, conversion still scales to ResizeWidth when one is set.
		width := 0
		if !opts.Resize {
			width = opts.ResizeWidth
		}

		for _, src := range sources {
			name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".webp"
			dst := filepath.Join(webpDir, name)
			if err := convertFile(src, dst, width, opts.Quality); err != nil {
				log.Errorf("Error converting %s to WebP: %v", filepath.Base(src), err)
				report.Failed++
				continue
			}
			log.Debugf("Saved WebP %s", dst)
			report.Converted++
		}
	}

	log.Infof("Image processing completed: %d resized, %d converted, %d failed", report.Resized, report.Converted, report.Failed)
	return report, nil
}

func pngFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// scale resizes img to width, keeping the aspect ratio. A non-positive width leaves img as is.
func scale(img image.Image, width int) image.Image {
	if width <= 0 {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

func resizeFile(src, dst string, width int) error {
	img, err := imaging.Open(src)
	if err != nil {
		return err
	}
	return imaging.Save(scale(img, width), dst)
}

func convertFile(src, dst string, width int, quality float32) error {
	img, err := imaging.Open(src)
	if err != nil {
		return err
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := webp.Encode(out, scale(img, width), options); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

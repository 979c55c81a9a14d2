package postprocess

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// AddTextToImage appends a white band below a PNG screenshot with the URL's origin printed on it.
func AddTextToImage(img []byte, rawURL string) ([]byte, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	host := parsedURL.Host
	if hostWithoutPort, port, ok := strings.Cut(host, ":"); ok {
		if (parsedURL.Scheme == "http" && port == "80") || (parsedURL.Scheme == "https" && port == "443") {
			host = hostWithoutPort
		}
	}
	printURL := parsedURL.Scheme + "://" + host + strings.TrimSuffix(parsedURL.Path, "/")

	src, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	face, err := loadFont()
	if err != nil {
		return nil, err
	}

	const padding = 20
	const borderSize = 1

	w := src.Bounds().Dx()
	h := src.Bounds().Dy() + padding*2 + borderSize
	dc := gg.NewContext(w, h)

	dc.DrawImage(src, 0, 0)

	yLine := float64(src.Bounds().Dy())
	dc.SetColor(color.White)
	dc.DrawRectangle(0, yLine, float64(w), float64(padding*2+borderSize))
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(float64(borderSize))
	dc.DrawLine(0, yLine, float64(w), yLine)
	dc.Stroke()
	dc.SetFontFace(face)
	dc.DrawStringAnchored(printURL, float64(w)/2, yLine+float64(padding), 0.5, 0.3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	fontOnce sync.Once
	fontFace font.Face
	fontErr  error
)

func loadFont() (font.Face, error) {
	fontOnce.Do(func() {
		ttFont, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("failed to parse font: %w", err)
			return
		}
		fontFace = truetype.NewFace(ttFont, &truetype.Options{Size: 14})
	})
	return fontFace, fontErr
}

// Package render rasterizes submitted documents into JPEG page images the
// extraction backend can read.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrDecode            = errors.New("decode document")
)

// Page is one rendered page, ready for transport
type Page struct {
	Filename string
	Number   int    // 1-based
	Image    string // base64 JPEG
	Width    int
	Height   int
}

// Options controls rasterization and encoding
type Options struct {
	DPI          float64
	MaxPages     int
	MaxDimension int
	JPEGQuality  int
}

// DefaultOptions renders at 200 DPI, at most 5 pages, longest side 2048px
func DefaultOptions() Options {
	return Options{DPI: 200, MaxPages: 5, MaxDimension: 2048, JPEGQuality: 75}
}

// Renderer turns PDFs and images into pages
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a renderer; zero option fields fall back to defaults
func New(opts Options, logger *slog.Logger) *Renderer {
	def := DefaultOptions()
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger}
}

// Supported reports whether filename has a renderable extension
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Render rasterizes data; the format is chosen by filename extension
func (r *Renderer) Render(ctx context.Context, filename string, data []byte) ([]Page, error) {
	var (
		images []image.Image
		err    error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		images, err = r.rasterizePDF(ctx, data)
	case ".jpg", ".jpeg", ".png":
		var img image.Image
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, err)
		}
		images = []image.Image{img}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", filename, err)
	}

	pages := make([]Page, 0, len(images))
	for i, img := range images {
		img = r.fit(img)
		encoded, err := encodeJPEG(img, r.opts.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encode %s page %d: %w", filename, i+1, err)
		}
		b := img.Bounds()
		pages = append(pages, Page{
			Filename: filename,
			Number:   i + 1,
			Image:    encoded,
			Width:    b.Dx(),
			Height:   b.Dy(),
		})
	}

	r.logger.Debug("rendered document", "filename", filename, "pages", len(pages))
	return pages, nil
}

func (r *Renderer) rasterizePDF(ctx context.Context, data []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > r.opts.MaxPages {
		n = r.opts.MaxPages
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrDecode)
	}

	images := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, r.opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrDecode, i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// fit downscales img so its longest side is at most MaxDimension,
// flattening any transparency onto white
func (r *Renderer) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)

	if longest > r.opts.MaxDimension {
		scale := float64(r.opts.MaxDimension) / float64(longest)
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

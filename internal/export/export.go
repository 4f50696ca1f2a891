// Package export writes the current camera view to an image file.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is used for any path that is not PNG, BMP or TIFF.
const DefaultJPEGQuality = 85

// ErrEmptyPath is returned when no output path was given.
var ErrEmptyPath = errors.New("empty export path")

// FrameSource provides the image to export.
type FrameSource interface {
	Frame() (image.Image, error)
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func() (image.Image, error)

// Frame calls f.
func (f FrameFunc) Frame() (image.Image, error) {
	return f()
}

// FileExporter encodes frames by file extension.
type FileExporter struct {
	Source      FrameSource
	JPEGQuality int
}

// NewFileExporter creates an exporter with the default JPEG quality.
func NewFileExporter(source FrameSource) *FileExporter {
	return &FileExporter{Source: source, JPEGQuality: DefaultJPEGQuality}
}

// Export writes the current frame to path, creating parent directories.
func (e *FileExporter) Export(ctx context.Context, path string) error {
	write, err := e.CaptureView(ctx, path)
	if err != nil {
		return err
	}
	return write(ctx)
}

// CaptureView takes the current frame now and returns a function that
// encodes that frame to path.
func (e *FileExporter) CaptureView(ctx context.Context, path string) (func(context.Context) error, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := e.Source.Frame()
	if err != nil {
		return nil, fmt.Errorf("capturing frame: %w", err)
	}
	return func(ctx context.Context) error {
		return e.write(ctx, img, path)
	}, nil
}

func (e *FileExporter) write(ctx context.Context, img image.Image, path string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
		if err != nil {
			os.Remove(path)
		}
	}()

	return e.encode(file, img, path)
}

func (e *FileExporter) encode(w io.Writer, img image.Image, path string) error {
	switch Format(path) {
	case "png":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(w, img); err != nil {
			return fmt.Errorf("encoding BMP: %w", err)
		}
	case "tiff":
		if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("encoding TIFF: %w", err)
		}
	default:
		quality := e.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("encoding JPEG: %w", err)
		}
	}
	return nil
}

// Format returns the encoding chosen for path: png, bmp, tiff or jpeg.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	default:
		return "jpeg"
	}
}

package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/arbox/internal/session"
)

var (
	_ session.ImageExporter = (*FileExporter)(nil)
	_ session.ViewCapturer  = (*FileExporter)(nil)
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 100, A: 255})
		}
	}
	return img
}

func staticSource() FrameSource {
	return FrameFunc(func() (image.Image, error) { return testImage(), nil })
}

func TestFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"view.png", "png"},
		{"VIEW.PNG", "png"},
		{"view.bmp", "bmp"},
		{"view.tif", "tiff"},
		{"view.tiff", "tiff"},
		{"view.jpg", "jpeg"},
		{"view.jpeg", "jpeg"},
		{"view", "jpeg"},
		{"dir.png/view.heic", "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Format(tt.path); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestExportFormats(t *testing.T) {
	dir := t.TempDir()
	e := NewFileExporter(staticSource())

	tests := []struct {
		name   string
		decode func(f *os.File) (image.Image, error)
	}{
		{"view.png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
		{"view.bmp", func(f *os.File) (image.Image, error) { return bmp.Decode(f) }},
		{"view.tiff", func(f *os.File) (image.Image, error) { return tiff.Decode(f) }},
		{"view.jpg", func(f *os.File) (image.Image, error) { return jpeg.Decode(f) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", tt.name)
			if err := e.Export(context.Background(), path); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("opening export: %v", err)
			}
			defer f.Close()

			img, err := tt.decode(f)
			if err != nil {
				t.Fatalf("decoding export: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
				t.Errorf("exported size = %v, want 8x6", b)
			}
		})
	}
}

func TestExportLosslessPixels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.png")
	if err := NewFileExporter(staticSource()).Export(context.Background(), path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	want := testImage()
	r1, g1, b1, a1 := img.At(3, 2).RGBA()
	r2, g2, b2, a2 := want.At(3, 2).RGBA()
	if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
		t.Errorf("pixel (3,2) = %v, want %v", img.At(3, 2), want.At(3, 2))
	}
}

func TestExportErrors(t *testing.T) {
	errSource := errors.New("camera unavailable")
	dir := t.TempDir()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		source  FrameSource
		path    string
		wantErr error
	}{
		{
			name:    "empty path",
			ctx:     context.Background(),
			source:  staticSource(),
			wantErr: ErrEmptyPath,
		},
		{
			name:    "cancelled",
			ctx:     cancelled,
			source:  staticSource(),
			path:    filepath.Join(dir, "cancelled.png"),
			wantErr: context.Canceled,
		},
		{
			name:    "source failure",
			ctx:     context.Background(),
			source:  FrameFunc(func() (image.Image, error) { return nil, errSource }),
			path:    filepath.Join(dir, "failed.png"),
			wantErr: errSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileExporter(tt.source).Export(tt.ctx, tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Export() error = %v, want %v", err, tt.wantErr)
			}
			if tt.path != "" {
				if _, err := os.Stat(tt.path); !os.IsNotExist(err) {
					t.Errorf("%s should not exist after a failed export", tt.path)
				}
			}
		})
	}
}

func TestExportJPEGQuality(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.jpg")
	high := filepath.Join(dir, "high.jpg")

	noisy := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			noisy.Set(x, y, color.RGBA{R: uint8(x*37 + y*91), G: uint8(x*x + y*13), B: uint8(x ^ y), A: 255})
		}
	}
	source := FrameFunc(func() (image.Image, error) { return noisy, nil })

	e := &FileExporter{Source: source, JPEGQuality: 5}
	if err := e.Export(context.Background(), low); err != nil {
		t.Fatal(err)
	}
	e.JPEGQuality = 100
	if err := e.Export(context.Background(), high); err != nil {
		t.Fatal(err)
	}

	lowInfo, err := os.Stat(low)
	if err != nil {
		t.Fatal(err)
	}
	highInfo, err := os.Stat(high)
	if err != nil {
		t.Fatal(err)
	}
	if lowInfo.Size() >= highInfo.Size() {
		t.Errorf("quality 5 produced %d bytes, quality 100 produced %d", lowInfo.Size(), highInfo.Size())
	}
}

func TestCaptureViewKeepsFrame(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	current := red
	source := FrameFunc(func() (image.Image, error) {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.Set(x, y, current)
			}
		}
		return img, nil
	})

	path := filepath.Join(t.TempDir(), "shots", "view.png")
	write, err := NewFileExporter(source).CaptureView(context.Background(), path)
	if err != nil {
		t.Fatalf("CaptureView() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("CaptureView should not write the file")
	}

	// The view moves on before the write runs.
	current = blue
	if err := write(context.Background()); err != nil {
		t.Fatalf("write error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got := color.RGBAModel.Convert(img.At(1, 1)); got != red {
		t.Errorf("pixel = %v, want the captured %v", got, red)
	}
}

func TestCaptureViewErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewFileExporter(staticSource())
	if _, err := e.CaptureView(context.Background(), ""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty path: error = %v, want ErrEmptyPath", err)
	}
	if _, err := e.CaptureView(cancelled, "view.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: error = %v, want context.Canceled", err)
	}

	path := filepath.Join(t.TempDir(), "late.png")
	write, err := e.CaptureView(context.Background(), path)
	if err != nil {
		t.Fatalf("CaptureView() error = %v", err)
	}
	if err := write(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("write error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s should not exist after a cancelled write", path)
	}
}

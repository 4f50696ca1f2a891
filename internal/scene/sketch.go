package scene

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Faultbox/arbox/internal/session"
)

// ErrNoFrame is returned by Frame before the first snapshot arrives.
var ErrNoFrame = errors.New("no frame to export")

var (
	backgroundColor = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	bottomColor     = color.RGBA{R: 80, G: 220, B: 120, A: 255}
	topColor        = color.RGBA{R: 80, G: 200, B: 240, A: 255}
	candidateColor  = color.RGBA{R: 250, G: 210, B: 60, A: 255}
	labelColor      = color.RGBA{R: 235, G: 235, B: 235, A: 255}
)

const candidateSize = 3

// Sketch keeps the latest snapshot and draws its screen-space overlay. It
// stands in for the live camera view when exporting from a replay.
type Sketch struct {
	mu   sync.Mutex
	vp   Viewport
	snap session.Snapshot
	ok   bool
}

// NewSketch creates a sketch for the viewport.
func NewSketch(vp Viewport) *Sketch {
	return &Sketch{vp: vp}
}

// Update replaces the snapshot to draw.
func (s *Sketch) Update(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.ok = true
}

// Frame renders the latest snapshot.
func (s *Sketch) Frame() (image.Image, error) {
	s.mu.Lock()
	snap, ok := s.snap, s.ok
	s.mu.Unlock()

	if !ok {
		return nil, ErrNoFrame
	}
	if s.vp.Width <= 0 || s.vp.Height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", s.vp.Width, s.vp.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.vp.Width, s.vp.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	polyline(img, snap.BottomPointsScreen, len(snap.BottomPointsScreen) == 4, bottomColor)
	polyline(img, snap.TopPointsScreen, len(snap.TopPointsScreen) == 4, topColor)

	// Screen lists skip unprojectable vertices, so indices only pair up
	// when every vertex made it.
	if len(snap.BottomPointsScreen) == 4 && len(snap.TopPointsScreen) == 4 {
		for i := range snap.TopPointsScreen {
			segment(img, snap.BottomPointsScreen[i], snap.TopPointsScreen[i], topColor)
		}
	}

	if len(snap.CandidatePointScreen) == 2 {
		x, y := pixel(snap.CandidatePointScreen)
		r := image.Rect(x-candidateSize, y-candidateSize, x+candidateSize+1, y+candidateSize+1)
		draw.Draw(img, r, image.NewUniform(candidateColor), image.Point{}, draw.Src)
	}

	label(img, caption(snap))
	return img, nil
}

func caption(snap session.Snapshot) string {
	if snap.Dimensions == nil {
		return snap.Stage
	}
	d := snap.Dimensions
	return fmt.Sprintf("%s  W %.2f  D %.2f  H %.2f", snap.Stage, d.Width, d.Depth, d.Height)
}

func label(img *image.RGBA, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 16),
	}
	d.DrawString(text)
}

func polyline(img *image.RGBA, pts [][]float32, closed bool, c color.Color) {
	for i := 0; i+1 < len(pts); i++ {
		segment(img, pts[i], pts[i+1], c)
	}
	if closed && len(pts) > 2 {
		segment(img, pts[len(pts)-1], pts[0], c)
	}
}

func segment(img *image.RGBA, a, b []float32, c color.Color) {
	x0, y0 := pixel(a)
	x1, y1 := pixel(b)
	line(img, x0, y0, x1, y1, c)
}

func pixel(p []float32) (int, int) {
	return int(p[0]), int(p[1])
}

// line draws with Bresenham's algorithm; pixels outside img are skipped by Set.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

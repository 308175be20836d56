package scene

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"templatecanvas/core"
)

func TestFitRect(t *testing.T) {
	tests := []struct {
		name                string
		cw, ch, iw, ih      float64
		x, y, width, height float64
	}{
		{"wide into canvas", 800, 600, 2000, 1000, 100, 150, 600, 300},
		{"exact fit", 800, 600, 800, 600, 0, 0, 800, 600},
		{"small never upscaled", 800, 600, 400, 300, 200, 150, 400, 300},
		{"tall into canvas", 800, 600, 300, 1200, 325, 0, 150, 600},
		{"degenerate image", 800, 600, 0, 0, 0, 0, 800, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitRect(tt.cw, tt.ch, tt.iw, tt.ih)
			want := core.Rect{X: tt.x, Y: tt.y, Width: tt.width, Height: tt.height}
			if got != want {
				t.Errorf("FitRect(%v, %v, %v, %v) = %+v, want %+v", tt.cw, tt.ch, tt.iw, tt.ih, got, want)
			}
		})
	}
}

func TestLoadBackground_Raster(t *testing.T) {
	s := New(800, 600)
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))

	err := LoadBackground(context.Background(), s, 1, BackgroundSource{Raster: img})
	if err != nil {
		t.Fatalf("LoadBackground() failed: %v", err)
	}

	b := s.BackdropFor(1)
	if b == nil {
		t.Fatal("expected a backdrop on page 1")
	}
	want := core.Rect{X: 100, Y: 150, Width: 600, Height: 300}
	if b.Placement != want {
		t.Errorf("placement = %+v, want %+v", b.Placement, want)
	}
	if b.White || b.Raster == nil {
		t.Error("expected a bitmap backdrop, not white fallback")
	}
	if got := b.Raster.Bounds(); got.Dx() != 600 || got.Dy() != 300 {
		t.Errorf("raster size = %dx%d, want 600x300", got.Dx(), got.Dy())
	}
}

func TestLoadBackground_Bytes(t *testing.T) {
	s := New(800, 600)

	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	src.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}

	if err := LoadBackground(context.Background(), s, 1, BackgroundSource{Data: buf.Bytes()}); err != nil {
		t.Fatalf("LoadBackground() failed: %v", err)
	}
	b := s.BackdropFor(1)
	if b == nil || b.Raster == nil {
		t.Fatal("expected decoded backdrop")
	}
	// 40x30 fits untouched, centered.
	want := core.Rect{X: 380, Y: 285, Width: 40, Height: 30}
	if b.Placement != want {
		t.Errorf("placement = %+v, want %+v", b.Placement, want)
	}
}

func TestLoadBackground_FailureFallsBackToWhite(t *testing.T) {
	s := New(800, 600)

	err := LoadBackground(context.Background(), s, 1, BackgroundSource{Data: []byte("not an image")})
	if err == nil {
		t.Fatal("expected an error for undecodable bytes")
	}
	var loadErr *core.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *core.LoadError, got %T: %v", err, err)
	}

	b := s.BackdropFor(1)
	if b == nil {
		t.Fatal("expected fallback backdrop")
	}
	if !b.White {
		t.Error("fallback backdrop should be white")
	}
	want := core.Rect{Width: 800, Height: 600}
	if b.Placement != want {
		t.Errorf("fallback placement = %+v, want %+v", b.Placement, want)
	}
}

func TestLoadBackground_Timeout(t *testing.T) {
	s := New(800, 600)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := LoadBackground(ctx, s, 1, BackgroundSource{Path: "/nonexistent/slow.png"})
	if !errors.Is(err, core.ErrLoadTimeout) {
		t.Fatalf("expected ErrLoadTimeout, got %v", err)
	}
	if b := s.BackdropFor(1); b == nil || !b.White {
		t.Error("timeout should install the white fallback backdrop")
	}
}

func TestLoadBackground_ReplacesPrior(t *testing.T) {
	s := New(800, 600)

	first := image.NewRGBA(image.Rect(0, 0, 100, 100))
	if err := LoadBackground(context.Background(), s, 1, BackgroundSource{Raster: first}); err != nil {
		t.Fatalf("LoadBackground() failed: %v", err)
	}
	second := image.NewRGBA(image.Rect(0, 0, 200, 100))
	if err := LoadBackground(context.Background(), s, 1, BackgroundSource{Raster: second}); err != nil {
		t.Fatalf("LoadBackground() failed: %v", err)
	}

	if len(s.Backdrops) != 1 {
		t.Fatalf("expected one backdrop per page, got %d", len(s.Backdrops))
	}
	b := s.BackdropFor(1)
	if b.Placement.Width != 200 || b.Placement.Height != 100 {
		t.Errorf("expected second backdrop to win, placement = %+v", b.Placement)
	}
}

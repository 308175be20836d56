package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// Point is a position in canvas pixel space (top-left origin).
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	Size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	Rect struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	// RGB is a color with components normalized to [0,1].
	RGB struct {
		R float64 `json:"r"`
		G float64 `json:"g"`
		B float64 `json:"b"`
	}

	// Transform places a layer on the canvas. Position and dimensions are
	// canvas pixels, rotation is clockwise degrees about the layer center.
	Transform struct {
		X               float64 `json:"x"`
		Y               float64 `json:"y"`
		Width           float64 `json:"width"`
		Height          float64 `json:"height"`
		RotationDegrees float64 `json:"rotationDegrees"`
		Opacity         float64 `json:"opacity"`
	}
)

// ParseHexColor converts a "#RRGGBB" or "RRGGBB" string (short "#RGB" form
// accepted) into a normalized RGB value.
func ParseHexColor(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	var comps [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		comps[i] = float64(v) / 255
	}
	return RGB{R: comps[0], G: comps[1], B: comps[2]}, nil
}

// Bytes returns the color scaled to 0-255 integer components.
func (c RGB) Bytes() (r, g, b int) {
	scale := func(v float64) int {
		n := int(math.Round(v * 255))
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return scale(c.R), scale(c.G), scale(c.B)
}

// Hex renders the color back to "#rrggbb" form.
func (c RGB) Hex() string {
	r, g, b := c.Bytes()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ClampOpacity forces v into the valid [0,1] opacity range.
func ClampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeRotation wraps an angle into [0,360).
func NormalizeRotation(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Package editor exposes formatting actions as pure patches against the
// layer model. Nothing here mutates a scene; every action produces a
// core.LayerPatch the session applies through its single mutation entry
// point, so each committed action yields exactly one history snapshot.
package editor

import (
	"fmt"

	"templatecanvas/core"
)

// RotationStep is the fixed increment of the toolbar rotate action.
const RotationStep = 90.0

// ToggleBold flips the layer's font weight.
func ToggleBold(l *core.Layer) core.LayerPatch {
	w := core.WeightBold
	if l.Text != nil && l.Text.Weight == core.WeightBold {
		w = core.WeightNormal
	}
	return core.LayerPatch{Weight: &w}
}

// ToggleItalic flips the layer's font style.
func ToggleItalic(l *core.Layer) core.LayerPatch {
	s := core.StyleItalic
	if l.Text != nil && l.Text.Style == core.StyleItalic {
		s = core.StyleNormal
	}
	return core.LayerPatch{Style: &s}
}

// ToggleUnderline flips the layer's text decoration.
func ToggleUnderline(l *core.Layer) core.LayerPatch {
	d := core.DecorationUnderline
	if l.Text != nil && l.Text.Decoration == core.DecorationUnderline {
		d = core.DecorationNone
	}
	return core.LayerPatch{Decoration: &d}
}

// SetAlign selects a text alignment; alignments are mutually exclusive, so
// setting one clears whatever was set before.
func SetAlign(align core.TextAlign) (core.LayerPatch, error) {
	switch align {
	case core.AlignLeft, core.AlignCenter, core.AlignRight, core.AlignJustify:
		return core.LayerPatch{Align: &align}, nil
	default:
		return core.LayerPatch{}, fmt.Errorf("unknown alignment %q", align)
	}
}

// SetTextColor parses a hex color string into a normalized RGB text color.
func SetTextColor(hex string) (core.LayerPatch, error) {
	c, err := core.ParseHexColor(hex)
	if err != nil {
		return core.LayerPatch{}, err
	}
	return core.LayerPatch{Color: &c}, nil
}

// SetFill parses a hex color string into a normalized RGB shape fill.
func SetFill(hex string) (core.LayerPatch, error) {
	c, err := core.ParseHexColor(hex)
	if err != nil {
		return core.LayerPatch{}, err
	}
	return core.LayerPatch{Fill: &c}, nil
}

// SetStroke parses a hex color string into a normalized RGB shape stroke.
func SetStroke(hex string) (core.LayerPatch, error) {
	c, err := core.ParseHexColor(hex)
	if err != nil {
		return core.LayerPatch{}, err
	}
	return core.LayerPatch{Stroke: &c}, nil
}

// Rotate advances the layer's rotation by RotationStep, wrapping at 360.
func Rotate(l *core.Layer) core.LayerPatch {
	deg := core.NormalizeRotation(l.Transform.RotationDegrees + RotationStep)
	return core.LayerPatch{RotationDegrees: &deg}
}

// SetOpacity clamps the value into [0,1].
func SetOpacity(v float64) core.LayerPatch {
	v = core.ClampOpacity(v)
	return core.LayerPatch{Opacity: &v}
}

// SetFontSize rejects non-positive sizes and patches the text size in pixels.
func SetFontSize(px float64) (core.LayerPatch, error) {
	if px <= 0 {
		return core.LayerPatch{}, fmt.Errorf("font size must be positive, got %v", px)
	}
	return core.LayerPatch{FontSizePx: &px}, nil
}

// SetFontFamily patches the text font family.
func SetFontFamily(family string) core.LayerPatch {
	return core.LayerPatch{FontFamily: &family}
}

// Apply resolves a named toolbar action against a layer. Free-text content
// changes do not come through here: those commit on blur through the
// session's CommitText so typing never floods the history.
func Apply(l *core.Layer, action, value string) (core.LayerPatch, error) {
	switch action {
	case "toggle-bold":
		return ToggleBold(l), nil
	case "toggle-italic":
		return ToggleItalic(l), nil
	case "toggle-underline":
		return ToggleUnderline(l), nil
	case "align":
		return SetAlign(core.TextAlign(value))
	case "text-color":
		return SetTextColor(value)
	case "fill":
		return SetFill(value)
	case "stroke":
		return SetStroke(value)
	case "rotate":
		return Rotate(l), nil
	case "opacity":
		var v float64
		if _, err := fmt.Sscanf(value, "%f", &v); err != nil {
			return core.LayerPatch{}, fmt.Errorf("invalid opacity %q", value)
		}
		return SetOpacity(v), nil
	case "font-size":
		var px float64
		if _, err := fmt.Sscanf(value, "%f", &px); err != nil {
			return core.LayerPatch{}, fmt.Errorf("invalid font size %q", value)
		}
		return SetFontSize(px)
	case "font-family":
		return SetFontFamily(value), nil
	default:
		return core.LayerPatch{}, fmt.Errorf("unknown action %q", action)
	}
}

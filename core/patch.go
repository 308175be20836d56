package core

// LayerPatch is the uniform mutation contract for layers: every editor
// action reduces to one of these. Nil fields are left untouched.
type LayerPatch struct {
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Width           *float64 `json:"width,omitempty"`
	Height          *float64 `json:"height,omitempty"`
	RotationDegrees *float64 `json:"rotationDegrees,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`

	Content     *string         `json:"content,omitempty"`
	FontFamily  *string         `json:"fontFamily,omitempty"`
	FontSizePx  *float64        `json:"fontSizePx,omitempty"`
	Color       *RGB            `json:"color,omitempty"`
	Weight      *FontWeight     `json:"fontWeight,omitempty"`
	Style       *FontStyle      `json:"fontStyle,omitempty"`
	Decoration  *TextDecoration `json:"textDecoration,omitempty"`
	Align       *TextAlign      `json:"textAlign,omitempty"`
	BorderColor *RGB            `json:"borderColor,omitempty"`
	BorderWidth *float64        `json:"borderWidth,omitempty"`
	Shadow      *bool           `json:"shadow,omitempty"`

	Fill        *RGB     `json:"fill,omitempty"`
	Stroke      *RGB     `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`

	SourceRef *string `json:"sourceRef,omitempty"`
	Payload   *string `json:"payload,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p LayerPatch) IsZero() bool {
	return p == LayerPatch{}
}

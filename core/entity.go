package core

import (
	"context"
	"image"
	"time"
)

type (
	// SourceAsset is the document or image a Template was created from. It
	// is immutable after creation; edits only touch the Scene layered above
	// it. Data may be shed under storage pressure, Ref never is.
	SourceAsset struct {
		Kind string `json:"kind"` // "pdf", "image" or "blank"
		Ref  string `json:"ref,omitempty"`
		Data []byte `json:"data,omitempty"`
	}

	// Template is a named, persisted document-editing project.
	Template struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Category    string      `json:"category,omitempty"`
		SourceAsset SourceAsset `json:"sourceAsset"`
		Thumbnail   string      `json:"thumbnail,omitempty"`
		Scene       *Scene      `json:"scene,omitempty"`
		// Compressed marks a template whose preview/bitmap payloads were
		// stripped to fit the storage quota; structural fields remain.
		Compressed bool      `json:"compressed,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}

	// TemplateStore defines the persistence layer for templates. List
	// returns light entries: no scene payload, thumbnail or asset data.
	TemplateStore interface {
		List(ctx context.Context) ([]*Template, error)
		Get(ctx context.Context, id string) (*Template, error)
		Save(ctx context.Context, template *Template) error
		Delete(ctx context.Context, id string) error
	}

	// TextRun is one positioned text fragment produced by the document
	// decoder, in the decoder's native point space with a bottom-left
	// origin. Conversion to canvas pixels happens at scene ingestion.
	TextRun struct {
		Text       string  `json:"text"`
		OriginX    float64 `json:"originX"`
		OriginY    float64 `json:"originY"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		FontName   string  `json:"fontName"`
		FontSizePt float64 `json:"fontSizePt"`
	}

	// DecodedPage is one source-document page: a background raster plus the
	// text runs positioned on it.
	DecodedPage struct {
		PageNumber int
		WidthPt    float64
		HeightPt   float64
		Raster     image.Image
		TextRuns   []TextRun
	}
)

// Clone returns a deep copy of the template, scene included.
func (t *Template) Clone() *Template {
	c := *t
	if t.SourceAsset.Data != nil {
		c.SourceAsset.Data = append([]byte(nil), t.SourceAsset.Data...)
	}
	if t.Scene != nil {
		c.Scene = t.Scene.Clone()
	}
	return &c
}

// Meta returns a copy with heavy payloads omitted, suitable for listings.
func (t *Template) Meta() *Template {
	c := *t
	c.Thumbnail = ""
	c.SourceAsset.Data = nil
	if t.Scene != nil {
		c.Scene = &Scene{
			CanvasWidth:  t.Scene.CanvasWidth,
			CanvasHeight: t.Scene.CanvasHeight,
		}
	}
	return &c
}

package scene

import (
	"context"

	"templatecanvas/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Ingest builds a scene from decoded pages: each page's raster becomes the
// page backdrop and each positioned text run becomes an editable text layer.
// The decoder emits point-space coordinates with a bottom-left origin; this
// is where they are converted into canvas pixel space (top-left origin),
// using the same fit scale and centering offset as the page backdrop.
func Ingest(ctx context.Context, canvasW, canvasH float64, pages []core.DecodedPage) (*core.Scene, error) {
	s := New(canvasW, canvasH)

	for _, page := range pages {
		s.Pages = append(s.Pages, core.PageGeometry{
			Number:   page.PageNumber,
			WidthPt:  page.WidthPt,
			HeightPt: page.HeightPt,
		})

		if page.Raster != nil {
			if err := LoadBackground(ctx, s, page.PageNumber, BackgroundSource{Raster: page.Raster}); err != nil {
				logrus.WithFields(logrus.Fields{
					"page":  page.PageNumber,
					"error": err,
				}).Warn("Page backdrop unavailable")
			}
		} else {
			s.SetBackdrop(&core.Backdrop{
				PageNumber: page.PageNumber,
				Placement:  FitRect(canvasW, canvasH, page.WidthPt, page.HeightPt),
				White:      true,
			})
		}

		placement := s.BackdropFor(page.PageNumber).Placement
		scale := 1.0
		if page.WidthPt > 0 {
			scale = placement.Width / page.WidthPt
		}

		z := 0
		for _, run := range page.TextRuns {
			if run.Text == "" {
				continue
			}
			z++
			height := run.Height
			if height == 0 {
				height = run.FontSizePt
			}
			s.Layers = append(s.Layers, &core.Layer{
				ID:         ulid.Make().String(),
				PageNumber: page.PageNumber,
				ZIndex:     z,
				Visible:    true,
				Kind:       core.LayerText,
				Transform: core.Transform{
					X:       placement.X + run.OriginX*scale,
					Y:       placement.Y + (page.HeightPt-run.OriginY-height)*scale,
					Width:   run.Width * scale,
					Height:  height * scale,
					Opacity: 1,
				},
				Text: &core.TextAttrs{
					Content:    run.Text,
					FontFamily: run.FontName,
					FontSizePx: run.FontSizePt * scale,
					Weight:     core.WeightNormal,
					Style:      core.StyleNormal,
					Decoration: core.DecorationNone,
					Align:      core.AlignLeft,
				},
			})
		}

		logrus.WithFields(logrus.Fields{
			"page":   page.PageNumber,
			"layers": z,
		}).Info("Page ingested")
	}

	return s, nil
}

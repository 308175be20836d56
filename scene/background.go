package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"time"

	"templatecanvas/core"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// DefaultLoadTimeout bounds how long a backdrop source may take to resolve.
const DefaultLoadTimeout = 30 * time.Second

// BackgroundSource identifies one backdrop input. Exactly one field is set;
// precedence is Raster, Data, Path, URL.
type BackgroundSource struct {
	Raster image.Image
	Data   []byte
	Path   string
	URL    string
}

func (src BackgroundSource) name() string {
	switch {
	case src.Raster != nil:
		return "raster"
	case src.Data != nil:
		return "embedded"
	case src.Path != "":
		return src.Path
	default:
		return src.URL
	}
}

// LoadBackground resolves the source to a bitmap, fits it into the canvas
// (aspect-preserving, never upscaled past 100%, centered) and installs it as
// the page's backdrop. The backdrop is not a layer: it is non-interactive and
// excluded from export as a drawable object. On any failure the page falls
// back to a flat white backdrop so the scene stays usable, and the failure is
// returned for notification.
func LoadBackground(ctx context.Context, s *core.Scene, page int, src BackgroundSource) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultLoadTimeout)
		defer cancel()
	}

	log := logrus.WithFields(logrus.Fields{
		"page":   page,
		"source": src.name(),
	})

	img, err := resolve(ctx, src)
	if err != nil {
		s.SetBackdrop(&core.Backdrop{
			PageNumber: page,
			Placement:  core.Rect{Width: s.CanvasWidth, Height: s.CanvasHeight},
			White:      true,
		})
		log.WithError(err).Warn("Background load failed, using white backdrop")
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", core.ErrLoadTimeout, src.name())
		}
		return &core.LoadError{Source: src.name(), Err: err}
	}

	bounds := img.Bounds()
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	placement := FitRect(s.CanvasWidth, s.CanvasHeight, iw, ih)

	fitted := img
	if placement.Width != iw || placement.Height != ih {
		dst := image.NewRGBA(image.Rect(0, 0, int(placement.Width), int(placement.Height)))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		fitted = dst
	}

	s.SetBackdrop(&core.Backdrop{
		PageNumber: page,
		Placement:  placement,
		Raster:     fitted,
	})
	log.WithFields(logrus.Fields{
		"image_width":  iw,
		"image_height": ih,
		"placed_x":     placement.X,
		"placed_y":     placement.Y,
	}).Info("Background loaded")
	return nil
}

// FitRect computes the centered placement of an image inside the canvas with
// scale min(cw/iw, ch/ih, 1): aspect preserved, never upscaled.
func FitRect(canvasW, canvasH, imageW, imageH float64) core.Rect {
	if imageW <= 0 || imageH <= 0 {
		return core.Rect{Width: canvasW, Height: canvasH}
	}
	scale := canvasW / imageW
	if s := canvasH / imageH; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	w, h := imageW*scale, imageH*scale
	return core.Rect{
		X:      (canvasW - w) / 2,
		Y:      (canvasH - h) / 2,
		Width:  w,
		Height: h,
	}
}

func resolve(ctx context.Context, src BackgroundSource) (image.Image, error) {
	switch {
	case src.Raster != nil:
		return src.Raster, nil
	case src.Data != nil:
		img, _, err := image.Decode(bytes.NewReader(src.Data))
		return img, err
	case src.Path != "":
		done := make(chan struct{})
		var img image.Image
		var err error
		go func() {
			defer close(done)
			var f *os.File
			if f, err = os.Open(src.Path); err != nil {
				return
			}
			defer f.Close()
			img, _, err = image.Decode(f)
		}()
		select {
		case <-done:
			return img, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case src.URL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	default:
		return nil, errors.New("empty background source")
	}
}

// Package quota wraps any TemplateStore with a hard capacity ceiling. Saves
// estimate their serialized size up front and degrade in tiers instead of
// failing outright: first the incoming template's preview fields are shed,
// then bitmap payloads are stripped store-wide with every affected template
// marked compressed, and as a last resort only structural metadata is kept,
// so a user's edits are never silently discarded.
package quota

import (
	"context"
	"encoding/json"
	"sync"

	"templatecanvas/core"

	"github.com/sirupsen/logrus"
)

// DefaultCapBytes matches the few-MB ceiling of typical bounded key-value
// backends.
const DefaultCapBytes = 4 << 20

type quotaStore struct {
	inner core.TemplateStore
	cap   int64

	mu     sync.Mutex
	sizes  map[string]int64
	primed bool
}

// New wraps inner with a capacity ceiling; capBytes <= 0 selects
// DefaultCapBytes.
func New(inner core.TemplateStore, capBytes int64) core.TemplateStore {
	if capBytes <= 0 {
		capBytes = DefaultCapBytes
	}
	return &quotaStore{
		inner: inner,
		cap:   capBytes,
		sizes: make(map[string]int64),
	}
}

func (s *quotaStore) List(ctx context.Context) ([]*core.Template, error) {
	return s.inner.List(ctx)
}

func (s *quotaStore) Get(ctx context.Context, id string) (*core.Template, error) {
	return s.inner.Get(ctx, id)
}

func (s *quotaStore) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sizes, id)
	s.mu.Unlock()
	return nil
}

func (s *quotaStore) Save(ctx context.Context, template *core.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prime(ctx); err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{
		"template_id": template.ID,
		"cap_bytes":   s.cap,
	})

	t := template.Clone()
	size, err := serializedSize(t)
	if err != nil {
		return err
	}

	if s.total(t.ID)+size <= s.cap {
		return s.commit(ctx, t, size)
	}

	// Tier 1: shed the incoming template's preview fields; the
	// authoritative source asset reference always survives.
	var shed []string
	if stripPreview(t) {
		shed = append(shed, "thumbnail")
	}
	if size, err = serializedSize(t); err != nil {
		return err
	}
	if s.total(t.ID)+size <= s.cap {
		log.WithField("shed", shed).Warn("Template saved without preview fields")
		return s.commit(ctx, t, size)
	}

	// Tier 2: strip bitmap payloads from every stored template, marking
	// each as compressed; structural fields stay intact and loadable.
	if err := s.compressAll(ctx); err != nil {
		return err
	}
	stripBitmaps(t)
	t.Compressed = true
	shed = append(shed, "bitmap payloads")
	if size, err = serializedSize(t); err != nil {
		return err
	}
	if s.total(t.ID)+size <= s.cap {
		log.WithField("shed", shed).Warn("Store compressed to fit quota")
		return s.commit(ctx, t, size)
	}

	// Last resort: structural metadata only. The save still happens; the
	// failure tells the user which visual data could not be kept.
	stripScenePayloads(t)
	shed = append(shed, "scene bitmaps")
	if size, err = serializedSize(t); err != nil {
		return err
	}
	need := s.total(t.ID) + size
	if err := s.commit(ctx, t, size); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"shed":       shed,
		"need_bytes": need,
	}).Error("Template saved with structural fields only")
	return &core.QuotaError{CapBytes: s.cap, NeedBytes: need, Shed: shed}
}

func (s *quotaStore) commit(ctx context.Context, t *core.Template, size int64) error {
	if err := s.inner.Save(ctx, t); err != nil {
		return err
	}
	s.sizes[t.ID] = size
	return nil
}

// total returns the current store footprint excluding the template being
// replaced.
func (s *quotaStore) total(excludeID string) int64 {
	var sum int64
	for id, size := range s.sizes {
		if id != excludeID {
			sum += size
		}
	}
	return sum
}

// prime loads the accounting map from the wrapped store once.
func (s *quotaStore) prime(ctx context.Context) error {
	if s.primed {
		return nil
	}
	metas, err := s.inner.List(ctx)
	if err != nil {
		return err
	}
	for _, meta := range metas {
		full, err := s.inner.Get(ctx, meta.ID)
		if err != nil {
			continue
		}
		size, err := serializedSize(full)
		if err != nil {
			continue
		}
		s.sizes[meta.ID] = size
	}
	s.primed = true
	return nil
}

func (s *quotaStore) compressAll(ctx context.Context) error {
	for id := range s.sizes {
		t, err := s.inner.Get(ctx, id)
		if err != nil {
			continue
		}
		changedPreview := stripPreview(t)
		changedBitmaps := stripBitmaps(t)
		if !changedPreview && !changedBitmaps {
			continue
		}
		t.Compressed = true
		size, err := serializedSize(t)
		if err != nil {
			continue
		}
		if err := s.inner.Save(ctx, t); err != nil {
			return err
		}
		s.sizes[id] = size
		logrus.WithField("template_id", id).Info("Stored template compressed")
	}
	return nil
}

func serializedSize(t *core.Template) (int64, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func stripPreview(t *core.Template) bool {
	if t.Thumbnail == "" {
		return false
	}
	t.Thumbnail = ""
	return true
}

func stripBitmaps(t *core.Template) bool {
	changed := false
	if len(t.SourceAsset.Data) > 0 {
		t.SourceAsset.Data = nil
		changed = true
	}
	if t.Scene != nil {
		for _, l := range t.Scene.Layers {
			if l.Image != nil && len(l.Image.Data) > 0 {
				l.Image.Data = nil
				changed = true
			}
		}
	}
	return changed
}

func stripScenePayloads(t *core.Template) {
	stripPreview(t)
	stripBitmaps(t)
	if t.Scene != nil {
		t.Scene.Backdrops = nil
	}
}

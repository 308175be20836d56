// Package session owns the live editing state for open templates. Each
// template has at most one session, the session exclusively owns its scene,
// and every mutation flows through a single entry point that serializes
// edits and keeps history snapshots strictly ordered with the mutation that
// produced them.
package session

import (
	"bytes"
	"context"
	"sync"
	"time"

	"templatecanvas/core"
	"templatecanvas/editor"
	"templatecanvas/encode"
	"templatecanvas/scene"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Session is one open editing surface over a template's scene.
type Session struct {
	ID         string
	TemplateID string

	// mu is the session's single logical mutation thread: all scene edits,
	// history operations and state reads serialize on it.
	mu       sync.Mutex
	scn      *core.Scene
	history  *scene.History
	template *core.Template
	store    core.TemplateStore
}

func newSession(t *core.Template, s *core.Scene, store core.TemplateStore) *Session {
	sess := &Session{
		ID:         ulid.Make().String(),
		TemplateID: t.ID,
		scn:        s,
		history:    scene.NewHistory(scene.DefaultHistoryDepth),
		template:   t,
		store:      store,
	}
	return sess
}

// mutate wraps one editor action: capture the pre-state, apply, and record
// exactly one history snapshot when the action changed anything. A failed
// action records nothing and leaves the scene untouched.
func (s *Session) mutate(apply func(*core.Scene) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pre, err := s.scn.Snapshot()
	if err != nil {
		return err
	}
	if err := apply(s.scn); err != nil {
		return err
	}
	post, err := s.scn.Snapshot()
	if err != nil {
		return err
	}
	if !bytes.Equal(pre, post) {
		s.history.Record(pre)
	}
	return nil
}

// AddLayer creates a layer of the given kind on the page.
func (s *Session) AddLayer(kind core.LayerKind, page int, t core.Transform) (*core.Layer, error) {
	var added *core.Layer
	err := s.mutate(func(sc *core.Scene) error {
		added = scene.AddLayer(sc, kind, page, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added.Clone(), nil
}

// UpdateLayer applies a raw patch to a layer.
func (s *Session) UpdateLayer(id string, patch core.LayerPatch) (*core.Layer, error) {
	var updated *core.Layer
	err := s.mutate(func(sc *core.Scene) error {
		l, err := scene.UpdateLayer(sc, id, patch)
		if err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Format resolves a named toolbar action into a patch and applies it.
func (s *Session) Format(id, action, value string) (*core.Layer, error) {
	var updated *core.Layer
	err := s.mutate(func(sc *core.Scene) error {
		l, err := scene.Find(sc, id)
		if err != nil {
			return err
		}
		patch, err := editor.Apply(l, action, value)
		if err != nil {
			return err
		}
		updated, err = scene.UpdateLayer(sc, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// CommitText is the blur-time text commit: free-text edits reach the model
// (and the history) once per editing burst, never per keystroke.
func (s *Session) CommitText(id, content string) (*core.Layer, error) {
	return s.UpdateLayer(id, core.LayerPatch{Content: &content})
}

// RevertText restores a decoded text run to its source value.
func (s *Session) RevertText(id string) (*core.Layer, error) {
	var reverted *core.Layer
	err := s.mutate(func(sc *core.Scene) error {
		l, err := scene.RevertText(sc, id)
		if err != nil {
			return err
		}
		reverted = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reverted.Clone(), nil
}

// RemoveLayer deletes a layer; recoverable only through Undo.
func (s *Session) RemoveLayer(id string) error {
	return s.mutate(func(sc *core.Scene) error {
		return scene.RemoveLayer(sc, id)
	})
}

// Reorder moves a layer one step in z-order.
func (s *Session) Reorder(id string, dir scene.Direction) error {
	return s.mutate(func(sc *core.Scene) error {
		return scene.Reorder(sc, id, dir)
	})
}

// SetVisibility toggles a layer's visibility.
func (s *Session) SetVisibility(id string, visible bool) error {
	return s.mutate(func(sc *core.Scene) error {
		return scene.SetVisibility(sc, id, visible)
	})
}

// SetLocked toggles a layer's mutation guard.
func (s *Session) SetLocked(id string, locked bool) error {
	return s.mutate(func(sc *core.Scene) error {
		return scene.SetLocked(sc, id, locked)
	})
}

// Duplicate clones a layer above its original.
func (s *Session) Duplicate(id string) (*core.Layer, error) {
	var dup *core.Layer
	err := s.mutate(func(sc *core.Scene) error {
		l, err := scene.Duplicate(sc, id)
		if err != nil {
			return err
		}
		dup = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dup.Clone(), nil
}

// Undo restores the most recent history entry; false when there is none.
func (s *Session) Undo() (bool, error) {
	return s.step(s.history.Undo)
}

// Redo reapplies the most recently undone entry; false when there is none.
func (s *Session) Redo() (bool, error) {
	return s.step(s.history.Redo)
}

func (s *Session) step(move func([]byte) ([]byte, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.scn.Snapshot()
	if err != nil {
		return false, err
	}
	data, ok := move(current)
	if !ok {
		return false, nil
	}
	restored, err := core.RestoreScene(data)
	if err != nil {
		return false, err
	}
	// Backdrop rasters live outside snapshots; carry the loaded ones over.
	restored.Backdrops = s.scn.Backdrops
	s.scn = restored
	return true, nil
}

// LoadBackground swaps a page's backdrop. Page navigation is not an
// undoable edit, so no history entry is recorded.
func (s *Session) LoadBackground(ctx context.Context, page int, src scene.BackgroundSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scene.LoadBackground(ctx, s.scn, page, src)
}

// Scene returns a deep copy of the current scene for rendering or
// inspection; callers never see the live object.
func (s *Session) Scene() *core.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scn.Clone()
}

// Export encodes the scene to a PDF. The scene is deep-copied under the
// session lock and encoded outside it, so the export observes one consistent
// snapshot and a mutation arriving mid-export can never tear it. Cancelling
// ctx (e.g. the editor closing) aborts the export without touching the
// in-memory scene.
func (s *Session) Export(ctx context.Context) (*encode.Result, error) {
	s.mu.Lock()
	snap := s.scn.Clone()
	s.mu.Unlock()
	return encode.Encode(ctx, snap)
}

// Save persists the template with a snapshot of the current scene. The store
// write happens outside the session lock on a cloned template so a slow
// backend never stalls editing.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	s.template.Scene = s.scn.Clone()
	s.template.UpdatedAt = time.Now()
	snapshot := s.template.Clone()
	s.mu.Unlock()

	if err := s.store.Save(ctx, snapshot); err != nil {
		logrus.WithFields(logrus.Fields{
			"template_id": s.TemplateID,
			"error":       err,
		}).Error("Failed to save template")
		return err
	}
	return nil
}

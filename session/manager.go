package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"templatecanvas/core"
	"templatecanvas/decode"
	"templatecanvas/scene"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Default canvas dimensions for blank templates.
const (
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 600
)

// Manager tracks open sessions. A template is owned by at most one session;
// opening an already-open template returns the existing session rather than
// creating a competing one.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	byTemplate map[string]string
	store      core.TemplateStore
}

func NewManager(store core.TemplateStore) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		byTemplate: make(map[string]string),
		store:      store,
	}
}

// Open finds or creates the session for a stored template. The scene comes
// from the stored snapshot when one exists, otherwise it is rebuilt by
// decoding the template's source asset.
func (m *Manager) Open(ctx context.Context, templateID string) (*Session, error) {
	m.mu.Lock()
	if sid, ok := m.byTemplate[templateID]; ok {
		sess := m.sessions[sid]
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"session_id":  sess.ID,
			"template_id": templateID,
		}).Debug("Reusing open session")
		return sess, nil
	}
	m.mu.Unlock()

	template, err := m.store.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	scn := template.Scene
	if scn == nil {
		scn, err = m.rebuildScene(ctx, template)
		if err != nil {
			return nil, err
		}
	} else {
		scn = scn.Clone()
	}

	return m.register(newSession(template, scn, m.store)), nil
}

// OpenBlank creates a new blank template with the given canvas size and
// opens a session on it.
func (m *Manager) OpenBlank(ctx context.Context, name, category string, canvasW, canvasH float64) (*Session, error) {
	if canvasW <= 0 {
		canvasW = DefaultCanvasWidth
	}
	if canvasH <= 0 {
		canvasH = DefaultCanvasHeight
	}

	now := time.Now()
	template := &core.Template{
		ID:          ulid.Make().String(),
		Name:        name,
		Category:    category,
		SourceAsset: core.SourceAsset{Kind: "blank"},
		Scene:       scene.New(canvasW, canvasH),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Save(ctx, template); err != nil {
		return nil, err
	}

	return m.register(newSession(template, scene.New(canvasW, canvasH), m.store)), nil
}

// OpenUpload creates a template from an uploaded source asset (PDF or raster
// image), ingests it into a scene and opens a session on it.
func (m *Manager) OpenUpload(ctx context.Context, name, category, filename string, data []byte) (*Session, error) {
	pages, err := decode.Bytes(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	scn, err := scene.Ingest(ctx, DefaultCanvasWidth, DefaultCanvasHeight, pages)
	if err != nil {
		return nil, err
	}

	kind := "image"
	if len(data) >= 5 && string(data[:5]) == "%PDF-" {
		kind = "pdf"
	}

	now := time.Now()
	template := &core.Template{
		ID:       ulid.Make().String(),
		Name:     name,
		Category: category,
		SourceAsset: core.SourceAsset{
			Kind: kind,
			Ref:  filename,
			Data: data,
		},
		Scene:     scn.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, template); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"template_id": template.ID,
		"source_kind": kind,
		"pages":       len(pages),
	}).Info("Template created from upload")

	return m.register(newSession(template, scn, m.store)), nil
}

// Get returns an open session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess, nil
}

// Close releases a session; the template becomes openable again.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		delete(m.byTemplate, sess.TemplateID)
		delete(m.sessions, id)
		logrus.WithField("session_id", id).Info("Session closed")
	}
}

func (m *Manager) register(sess *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Lost a race opening the same template; hand back the winner.
	if sid, ok := m.byTemplate[sess.TemplateID]; ok {
		return m.sessions[sid]
	}

	m.sessions[sess.ID] = sess
	m.byTemplate[sess.TemplateID] = sess.ID
	logrus.WithFields(logrus.Fields{
		"session_id":  sess.ID,
		"template_id": sess.TemplateID,
	}).Info("Session opened")
	return sess
}

func (m *Manager) rebuildScene(ctx context.Context, t *core.Template) (*core.Scene, error) {
	asset := t.SourceAsset
	switch {
	case len(asset.Data) > 0:
		pages, err := decode.Bytes(ctx, asset.Data, asset.Ref)
		if err != nil {
			return nil, err
		}
		return scene.Ingest(ctx, DefaultCanvasWidth, DefaultCanvasHeight, pages)
	case asset.Kind == "blank" || asset.Kind == "":
		return scene.New(DefaultCanvasWidth, DefaultCanvasHeight), nil
	default:
		return nil, fmt.Errorf("template %s has no scene and its source asset payload was shed", t.ID)
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"templatecanvas/core"

	"github.com/sirupsen/logrus"
)

type templateStore struct {
	mu        sync.RWMutex
	templates map[string]*core.Template
}

func NewTemplateStore() core.TemplateStore {
	return &templateStore{
		templates: make(map[string]*core.Template),
	}
}

func (s *templateStore) List(ctx context.Context) ([]*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*core.Template, 0, len(s.templates))
	for _, t := range s.templates {
		templates = append(templates, t.Meta())
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].UpdatedAt.Equal(templates[j].UpdatedAt) {
			return templates[i].ID < templates[j].ID
		}
		return templates[i].UpdatedAt.After(templates[j].UpdatedAt)
	})
	return templates, nil
}

func (s *templateStore) Get(ctx context.Context, id string) (*core.Template, error) {
	log := logrus.WithField("template_id", id)

	s.mu.RLock()
	t, ok := s.templates[id]
	s.mu.RUnlock()

	if !ok {
		log.WithField("error", "template not found").Warn("Template with specified ID not found")
		return nil, core.ErrTemplateNotFound
	}

	log.Debug("Template retrieved successfully")
	return t.Clone(), nil
}

// Save stores a deep copy: the store never aliases a live scene.
func (s *templateStore) Save(ctx context.Context, template *core.Template) error {
	s.mu.Lock()
	s.templates[template.ID] = template.Clone()
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"template_id": template.ID,
		"name":        template.Name,
	}).Info("Template saved")
	return nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return core.ErrTemplateNotFound
	}
	delete(s.templates, id)
	logrus.WithField("template_id", id).Info("Template deleted")
	return nil
}

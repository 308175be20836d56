package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"templatecanvas/core"

	"github.com/sirupsen/logrus"
)

type templateStore struct {
	basePath string
}

func NewTemplateStore(basePath string) core.TemplateStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logrus.WithFields(logrus.Fields{
			"base_path": basePath,
			"error":     err,
		}).Fatal("Failed to create template directory")
	}
	return &templateStore{basePath: basePath}
}

func (s *templateStore) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

func (s *templateStore) List(ctx context.Context) ([]*core.Template, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}

	templates := make([]*core.Template, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.read(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"file":  entry.Name(),
				"error": err,
			}).Warn("Skipping unreadable template file")
			continue
		}
		templates = append(templates, t.Meta())
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].UpdatedAt.After(templates[j].UpdatedAt)
	})
	return templates, nil
}

func (s *templateStore) Get(ctx context.Context, id string) (*core.Template, error) {
	log := logrus.WithField("template_id", id)

	t, err := s.read(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("error", "template not found").Warn("Template with specified ID not found")
			return nil, core.ErrTemplateNotFound
		}
		log.WithError(err).Error("Failed to read template")
		return nil, err
	}

	log.Debug("Template retrieved successfully")
	return t, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) error {
	log := logrus.WithFields(logrus.Fields{
		"template_id": template.ID,
		"name":        template.Name,
	})

	data, err := json.Marshal(template)
	if err != nil {
		log.WithError(err).Error("Failed to serialize template")
		return err
	}

	// Write-then-rename so a crash mid-write never corrupts a template.
	tmp := s.path(template.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write template")
		return err
	}
	if err := os.Rename(tmp, s.path(template.ID)); err != nil {
		log.WithError(err).Error("Failed to commit template")
		return err
	}

	log.WithField("bytes", len(data)).Info("Template saved")
	return nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return core.ErrTemplateNotFound
	}
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	logrus.WithField("template_id", id).Info("Template deleted")
	return nil
}

func (s *templateStore) read(path string) (*core.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t core.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stdlog "log"
	"time"

	"templatecanvas/core"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type templateStore struct {
	db *sql.DB
}

func NewTemplateStore(dataSourceName string) core.TemplateStore {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		stdlog.Fatal(err)
	}

	sts := `CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		compressed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		data BLOB NOT NULL
	);`
	if _, err = db.Exec(sts); err != nil {
		stdlog.Fatal(err)
	}

	return &templateStore{db}
}

func (s *templateStore) List(ctx context.Context) ([]*core.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category, compressed, created_at, updated_at FROM templates ORDER BY updated_at DESC")
	if err != nil {
		logrus.WithField("error", err).Error("Failed to list templates")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close template rows")
		}
	}()

	var templates []*core.Template
	for rows.Next() {
		var t core.Template
		var category sql.NullString
		var compressed int
		var createdAt, updatedAt int64
		if err := rows.Scan(&t.ID, &t.Name, &category, &compressed, &createdAt, &updatedAt); err != nil {
			logrus.WithField("error", err).Error("Failed to scan template row")
			continue
		}
		t.Category = category.String
		t.Compressed = compressed != 0
		t.CreatedAt = time.UnixMilli(createdAt)
		t.UpdatedAt = time.UnixMilli(updatedAt)
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

func (s *templateStore) Get(ctx context.Context, id string) (*core.Template, error) {
	log := logrus.WithField("template_id", id)
	log.Debug("Retrieving template by ID")

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM templates WHERE id = ?", id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			log.WithField("error", "template not found").Warn("Template with specified ID not found")
			return nil, core.ErrTemplateNotFound
		}
		log.WithField("error", err).Error("Failed to retrieve template")
		return nil, err
	}

	var t core.Template
	if err := json.Unmarshal(data, &t); err != nil {
		log.WithField("error", err).Error("Failed to deserialize template")
		return nil, err
	}
	log.Debug("Template retrieved successfully")
	return &t, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) error {
	log := logrus.WithFields(logrus.Fields{
		"template_id": template.ID,
		"name":        template.Name,
	})

	data, err := json.Marshal(template)
	if err != nil {
		log.WithField("error", err).Error("Failed to serialize template")
		return err
	}

	compressed := 0
	if template.Compressed {
		compressed = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, category, compressed, created_at, updated_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, category = excluded.category,
		   compressed = excluded.compressed, updated_at = excluded.updated_at,
		   data = excluded.data`,
		template.ID, template.Name, template.Category, compressed,
		template.CreatedAt.UnixMilli(), template.UpdatedAt.UnixMilli(), data)
	if err != nil {
		log.WithField("error", err).Error("Failed to save template")
		return err
	}

	log.WithField("bytes", len(data)).Info("Template saved")
	return nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"template_id": id,
			"error":       err,
		}).Error("Failed to delete template")
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrTemplateNotFound
	}
	logrus.WithField("template_id", id).Info("Template deleted")
	return nil
}

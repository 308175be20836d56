package templates

import (
	"errors"
	"net/http"

	"templatecanvas/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HandleList lists stored templates without their heavy payloads.
func HandleList(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := store.List(r.Context())
		if err != nil {
			logrus.WithField("error", err).Error("Failed to list templates")
			http.Error(w, "Failed to list templates", http.StatusInternalServerError)
			return
		}

		if templates == nil {
			templates = []*core.Template{}
		}
		render.JSON(w, r, templates)
	}
}

// HandleGet retrieves a full template, scene included.
func HandleGet(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		template, err := store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrTemplateNotFound) {
				http.Error(w, "Template not found", http.StatusNotFound)
				return
			}
			logrus.WithFields(logrus.Fields{
				"template_id": id,
				"error":       err,
			}).Error("Failed to get template")
			http.Error(w, "Failed to get template", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, template)
	}
}

// HandleDelete removes a template explicitly.
func HandleDelete(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := store.Delete(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrTemplateNotFound) {
				http.Error(w, "Template not found", http.StatusNotFound)
				return
			}
			logrus.WithFields(logrus.Fields{
				"template_id": id,
				"error":       err,
			}).Error("Failed to delete template")
			http.Error(w, "Failed to delete template", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

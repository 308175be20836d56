package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"templatecanvas/core"
	"templatecanvas/scene"
	"templatecanvas/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// MaxUploadBytes is the practical upper bound for source assets.
const MaxUploadBytes = 10 << 20

type (
	OpenRequest struct {
		TemplateID   string  `json:"template_id,omitempty"`
		Name         string  `json:"name,omitempty"`
		Category     string  `json:"category,omitempty"`
		CanvasWidth  float64 `json:"canvas_width,omitempty"`
		CanvasHeight float64 `json:"canvas_height,omitempty"`
	}

	OpenResponse struct {
		SessionID  string      `json:"session_id"`
		TemplateID string      `json:"template_id"`
		Scene      *core.Scene `json:"scene"`
	}

	AddLayerRequest struct {
		Kind      core.LayerKind `json:"kind"`
		Page      int            `json:"page"`
		Transform core.Transform `json:"transform"`
	}

	FormatRequest struct {
		Action string `json:"action"`
		Value  string `json:"value,omitempty"`
	}

	TextCommitRequest struct {
		Content string `json:"content"`
	}

	ReorderRequest struct {
		Direction string `json:"direction"`
	}

	VisibilityRequest struct {
		Visible bool `json:"visible"`
	}

	LockRequest struct {
		Locked bool `json:"locked"`
	}

	BackgroundRequest struct {
		Page int    `json:"page"`
		URL  string `json:"url,omitempty"`
		Path string `json:"path,omitempty"`
		Data []byte `json:"data,omitempty"`
	}

	ExportResponse struct {
		SkippedLayers int `json:"skipped_layers"`
	}
)

// HandleOpen opens a session on an existing template, or creates a blank
// template when no template id is given.
func HandleOpen(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var sess *session.Session
		var err error
		if req.TemplateID != "" {
			sess, err = manager.Open(r.Context(), req.TemplateID)
		} else {
			sess, err = manager.OpenBlank(r.Context(), req.Name, req.Category, req.CanvasWidth, req.CanvasHeight)
		}
		if err != nil {
			if errors.Is(err, core.ErrTemplateNotFound) {
				http.Error(w, "Template not found", http.StatusNotFound)
				return
			}
			logrus.WithField("error", err).Error("Failed to open session")
			http.Error(w, "Failed to open session", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, OpenResponse{
			SessionID:  sess.ID,
			TemplateID: sess.TemplateID,
			Scene:      sess.Scene(),
		})
	}
}

// HandleUpload creates a template from an uploaded source asset and opens a
// session on it. The body is the raw asset, typed by extension; anything
// other than pdf/png/jpg is rejected before it reaches the decoder.
func HandleUpload(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if !allowedUpload(filename) {
			http.Error(w, "Unsupported source type", http.StatusUnsupportedMediaType)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
		if err != nil {
			http.Error(w, "Upload too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			name = strings.TrimSuffix(filename, filepath.Ext(filename))
		}

		sess, err := manager.OpenUpload(r.Context(), name, r.URL.Query().Get("category"), filename, data)
		if err != nil {
			var decodeErr *core.DecodeError
			if errors.As(err, &decodeErr) {
				logrus.WithField("error", err).Warn("Uploaded source failed to decode")
				http.Error(w, "Source document could not be decoded", http.StatusUnprocessableEntity)
				return
			}
			logrus.WithField("error", err).Error("Failed to create template from upload")
			http.Error(w, "Failed to create template", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, OpenResponse{
			SessionID:  sess.ID,
			TemplateID: sess.TemplateID,
			Scene:      sess.Scene(),
		})
	}
}

func allowedUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// HandleGetScene returns a snapshot of the session's scene.
func HandleGetScene(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}
		render.JSON(w, r, sess.Scene())
	}
}

// HandleClose releases a session.
func HandleClose(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Close(chi.URLParam(r, "sessionId"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAddLayer creates a layer in the session's scene.
func HandleAddLayer(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req AddLayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Page < 1 {
			req.Page = 1
		}

		layer, err := sess.AddLayer(req.Kind, req.Page, req.Transform)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to add layer")
			http.Error(w, "Failed to add layer", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layer)
	}
}

// HandleUpdateLayer applies a raw patch to a layer.
func HandleUpdateLayer(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var patch core.LayerPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		layer, err := sess.UpdateLayer(chi.URLParam(r, "layerId"), patch)
		if err != nil {
			writeLayerError(w, err)
			return
		}
		render.JSON(w, r, layer)
	}
}

// HandleFormat applies a named toolbar formatting action to a layer.
func HandleFormat(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req FormatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		layer, err := sess.Format(chi.URLParam(r, "layerId"), req.Action, req.Value)
		if err != nil {
			if errors.Is(err, core.ErrLayerNotFound) || errors.Is(err, core.ErrLayerLocked) {
				writeLayerError(w, err)
				return
			}
			http.Error(w, fmt.Sprintf("Invalid action: %v", err), http.StatusBadRequest)
			return
		}
		render.JSON(w, r, layer)
	}
}

// HandleCommitText commits a free-text edit. The client calls this on blur,
// so a typing burst lands as a single history entry.
func HandleCommitText(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req TextCommitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		layer, err := sess.CommitText(chi.URLParam(r, "layerId"), req.Content)
		if err != nil {
			writeLayerError(w, err)
			return
		}
		render.JSON(w, r, layer)
	}
}

// HandleRevertText restores a decoded text run to its source value.
func HandleRevertText(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		layer, err := sess.RevertText(chi.URLParam(r, "layerId"))
		if err != nil {
			writeLayerError(w, err)
			return
		}
		render.JSON(w, r, layer)
	}
}

// HandleRemoveLayer deletes a layer.
func HandleRemoveLayer(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		if err := sess.RemoveLayer(chi.URLParam(r, "layerId")); err != nil {
			writeLayerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleReorder moves a layer one step up or down in z-order.
func HandleReorder(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		dir := scene.Direction(req.Direction)
		if dir != scene.Up && dir != scene.Down {
			http.Error(w, "Direction must be up or down", http.StatusBadRequest)
			return
		}

		if err := sess.Reorder(chi.URLParam(r, "layerId"), dir); err != nil {
			writeLayerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleDuplicate clones a layer above its original.
func HandleDuplicate(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		layer, err := sess.Duplicate(chi.URLParam(r, "layerId"))
		if err != nil {
			writeLayerError(w, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layer)
	}
}

// HandleSetVisibility toggles a layer's visibility.
func HandleSetVisibility(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req VisibilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := sess.SetVisibility(chi.URLParam(r, "layerId"), req.Visible); err != nil {
			writeLayerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleSetLocked toggles a layer's mutation guard.
func HandleSetLocked(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req LockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := sess.SetLocked(chi.URLParam(r, "layerId"), req.Locked); err != nil {
			writeLayerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleUndo rolls the scene back one history entry.
func HandleUndo(manager *session.Manager) http.HandlerFunc {
	return historyStep(manager, func(s *session.Session) (bool, error) { return s.Undo() })
}

// HandleRedo reapplies the most recently undone entry.
func HandleRedo(manager *session.Manager) http.HandlerFunc {
	return historyStep(manager, func(s *session.Session) (bool, error) { return s.Redo() })
}

func historyStep(manager *session.Manager, step func(*session.Session) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		applied, err := step(sess)
		if err != nil {
			logrus.WithField("error", err).Error("History step failed")
			http.Error(w, "History step failed", http.StatusInternalServerError)
			return
		}
		render.JSON(w, r, map[string]interface{}{
			"applied": applied,
			"scene":   sess.Scene(),
		})
	}
}

// HandleLoadBackground loads or replaces a page backdrop. A load failure is
// not an HTTP failure: the scene falls back to a white backdrop and the
// response carries the dismissible notification text.
func HandleLoadBackground(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		var req BackgroundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Page < 1 {
			req.Page = 1
		}

		err := sess.LoadBackground(r.Context(), req.Page, scene.BackgroundSource{
			Data: req.Data,
			Path: req.Path,
			URL:  req.URL,
		})
		if err != nil {
			render.JSON(w, r, map[string]string{
				"warning": fmt.Sprintf("used blank background: %v", err),
			})
			return
		}
		render.JSON(w, r, map[string]string{"status": "loaded"})
	}
}

// HandleSave persists the session's template.
func HandleSave(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		err := sess.Save(r.Context())
		if err != nil {
			var quotaErr *core.QuotaError
			if errors.As(err, &quotaErr) {
				// Structural data was saved; tell the user what was not.
				render.Status(r, http.StatusInsufficientStorage)
				render.JSON(w, r, map[string]interface{}{
					"warning": "saved without visual data",
					"shed":    quotaErr.Shed,
				})
				return
			}
			logrus.WithField("error", err).Error("Failed to save template")
			http.Error(w, "Failed to save template", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleExport encodes the scene and streams the PDF. Closing the connection
// cancels the export through the request context.
func HandleExport(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, manager)
		if !ok {
			return
		}

		result, err := sess.Export(r.Context())
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"error":      err,
			}).Error("Export failed")
			http.Error(w, "Export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="template.pdf"`)
		w.Header().Set("X-Skipped-Layers", fmt.Sprintf("%d", result.SkippedLayers))
		if _, err := w.Write(result.PDF); err != nil {
			logrus.WithField("error", err).Warn("Failed to stream export")
		}
	}
}

func getSession(w http.ResponseWriter, r *http.Request, manager *session.Manager) (*session.Session, bool) {
	sess, err := manager.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func writeLayerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrLayerNotFound):
		http.Error(w, "Layer not found", http.StatusNotFound)
	case errors.Is(err, core.ErrLayerLocked):
		http.Error(w, "Layer is locked", http.StatusLocked)
	default:
		logrus.WithField("error", err).Error("Layer operation failed")
		http.Error(w, "Layer operation failed", http.StatusInternalServerError)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"luxespace/internal/design"
	"luxespace/internal/detach"
	"luxespace/internal/gateway/repository/render"
	"luxespace/internal/gateway/repository/session"
	"luxespace/internal/wizard"
)

const DefaultMaxUploadBytes = 10 << 20

type Options struct {
	Sessions       *session.Store
	Renders        render.Store
	Runner         *detach.Runner
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// SessionHandler exposes one wizard per anonymous visitor session.
type SessionHandler struct {
	sessions  *session.Store
	runner    *detach.Runner
	maxUpload int64
	views     viewBuilder
	log       *zap.Logger
}

func NewSessionHandler(opts Options) *SessionHandler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("handler")
	renders := opts.Renders
	if renders == nil {
		renders = render.InlineStore{}
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &SessionHandler{
		sessions:  opts.Sessions,
		runner:    opts.Runner,
		maxUpload: maxUpload,
		views:     viewBuilder{renders: renders, log: log},
		log:       log,
	}
}

func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, m := h.sessions.Create()
	h.log.Debug("session created", zap.String("session", id))
	writeJSON(w, http.StatusCreated, h.views.build(r.Context(), id, m.Snapshot()))
}

func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, id, m)
}

func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := m.Start(); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, id, m)
}

// HandleUpdateForm applies a JSON object of field name to raw value. Fields
// are applied in name order and the first rejected one stops the update.
func (h *SessionHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in map[string]string
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid json body")
		return
	}
	fields := make([]string, 0, len(in))
	for k := range in {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := m.Update(f, in[f]); err != nil {
			h.fail(w, err)
			return
		}
	}
	h.respond(w, r, http.StatusOK, id, m)
}

func (h *SessionHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_argument", "multipart form with an image field is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(design.FieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "image field is required")
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "image is too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "could not read image")
		return
	}
	mime := detectImageType(header.Header.Get("Content-Type"), data)
	if mime == "" {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "only image files are accepted")
		return
	}
	if err := m.SelectImage(design.NewImage(header.Filename, mime, data)); err != nil {
		h.fail(w, err)
		return
	}
	h.log.Debug("image selected", zap.String("session", id), zap.String("name", header.Filename), zap.Int("bytes", len(data)))
	h.respond(w, r, http.StatusOK, id, m)
}

func (h *SessionHandler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := m.RemoveImage(); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, id, m)
}

// HandlePreview serves the bytes of the currently selected photo. Tokens of
// replaced or removed photos no longer resolve.
func (h *SessionHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	img := m.Snapshot().Form.Image
	if img == nil || img.PreviewToken != r.PathValue("token") {
		writeError(w, http.StatusNotFound, "not_found", "preview not found")
		return
	}
	writeBytes(w, img.MIMEType, img.Data)
}

// HandleSubmit validates and runs the analysis. With ?async=1 the analysis
// continues in the background and the analyzing view is returned at once.
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	run, _, err := m.Begin()
	if errors.Is(err, wizard.ErrInvalidForm) {
		h.respond(w, r, http.StatusUnprocessableEntity, id, m)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.runner != nil {
		h.runner.Go("wizard.submit", func(ctx context.Context) error {
			return ignoreDiscarded(run(ctx))
		})
		h.respond(w, r, http.StatusAccepted, id, m)
		return
	}
	// The outcome lands in session state even if the client goes away.
	if err := ignoreDiscarded(run(context.WithoutCancel(r.Context()))); err != nil {
		h.log.Info("submit finished with error", zap.String("session", id), zap.Error(err))
	}
	h.respond(w, r, http.StatusOK, id, m)
}

func (h *SessionHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := m.Unlock(); err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, id, m)
}

func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	m.Reset()
	h.respond(w, r, http.StatusOK, id, m)
}

// HandleOptionImage serves the rendered image of one design option.
func (h *SessionHandler) HandleOptionImage(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(r.PathValue("index"))
	res := m.Snapshot().Result
	if err != nil || res == nil || idx < 0 || idx >= len(res.Options) || res.Options[idx].RenderedImage == nil {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	img := res.Options[idx].RenderedImage
	writeBytes(w, img.MIMEType, img.Data)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *wizard.Machine, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	m, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return "", nil, false
	}
	return id, m, true
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, status int, id string, m *wizard.Machine) {
	writeJSON(w, status, h.views.build(r.Context(), id, m.Snapshot()))
}

func (h *SessionHandler) fail(w http.ResponseWriter, err error) {
	var unknown *design.UnknownFieldError
	switch {
	case errors.Is(err, wizard.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "failed_precondition", err.Error())
	case errors.Is(err, wizard.ErrInvalidForm):
		writeError(w, http.StatusUnprocessableEntity, "invalid_form", err.Error())
	case errors.As(err, &unknown), errors.Is(err, design.ErrUnknownChoice):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func ignoreDiscarded(err error) error {
	if errors.Is(err, wizard.ErrRunDiscarded) {
		return nil
	}
	return err
}

// detectImageType sniffs the content; the declared type only refines a
// sniffed image type.
func detectImageType(declared string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return ""
	}
	if mime := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0])); strings.HasPrefix(mime, "image/") {
		return mime
	}
	return sniffed
}

package server

import (
	"net/http"

	"go.uber.org/zap"

	"luxespace/internal/gateway/handler"
	"luxespace/internal/gateway/middleware"
)

func NewMux(sessions *handler.SessionHandler, origins []string, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", sessions.HandleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", sessions.HandleGet)
	mux.HandleFunc("POST /api/sessions/{id}/start", sessions.HandleStart)
	mux.HandleFunc("PATCH /api/sessions/{id}/form", sessions.HandleUpdateForm)
	mux.HandleFunc("PUT /api/sessions/{id}/image", sessions.HandleUploadImage)
	mux.HandleFunc("DELETE /api/sessions/{id}/image", sessions.HandleRemoveImage)
	mux.HandleFunc("GET /api/sessions/{id}/image/{token}", sessions.HandlePreview)
	mux.HandleFunc("POST /api/sessions/{id}/submit", sessions.HandleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/unlock", sessions.HandleUnlock)
	mux.HandleFunc("POST /api/sessions/{id}/reset", sessions.HandleReset)
	mux.HandleFunc("GET /api/sessions/{id}/options/{index}/image", sessions.HandleOptionImage)
	mux.HandleFunc("GET /api/sessions/{id}/watch", sessions.HandleWatch)

	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	return middleware.CORS(origins, middleware.Recover(log, middleware.Logging(log, mux)))
}

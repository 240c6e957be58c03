package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/shaiso/Cloudbox/internal/telemetry"
)

// Status возвращает диагностику: какие учётные данные заданы,
// есть ли сохранённая сессия и состояние воркера хранилища.
// GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Credentials: CredentialFlags{
			AccessKeyID:     strings.TrimSpace(h.credentials.AccessKeyID) != "",
			SecretAccessKey: strings.TrimSpace(h.credentials.SecretAccessKey) != "",
			SessionToken:    h.credentials.SessionToken != "",
		},
		Storage: h.transfer.Status(),
	}

	if h.sessionFile != "" {
		if _, err := os.Stat(h.sessionFile); err == nil {
			resp.SessionFileExists = true
		}
	}

	// Записи, для которых загрузка ещё не завершилась
	pending, err := h.files.CountPending(r.Context())
	if err != nil {
		telemetry.FromContext(r.Context()).Warn("failed to count pending uploads", "error", err)
	}
	resp.PendingUploads = pending

	Success(w, resp)
}

package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		RequestID(h.logger),
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Files
	mux.Handle("POST /api/v1/files", chain(http.HandlerFunc(h.UploadFile)))
	mux.Handle("GET /api/v1/files/{id}", chain(http.HandlerFunc(h.GetFile)))
	mux.Handle("GET /api/v1/files/{id}/download", chain(http.HandlerFunc(h.DownloadFile)))
	mux.Handle("DELETE /api/v1/files/{id}", chain(http.HandlerFunc(h.DeleteFile)))
	mux.Handle("POST /api/v1/files/bulk-delete", chain(http.HandlerFunc(h.BulkDeleteFiles)))

	// Uploads
	mux.Handle("GET /api/v1/uploads/{task_id}/progress", chain(http.HandlerFunc(h.UploadProgress)))

	// Folders
	mux.Handle("GET /api/v1/folders/contents", chain(http.HandlerFunc(h.RootContents)))
	mux.Handle("GET /api/v1/folders/{id}/contents", chain(http.HandlerFunc(h.FolderContents)))
	mux.Handle("POST /api/v1/folders", chain(http.HandlerFunc(h.CreateFolder)))

	// Diagnostics
	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.Status)))
}

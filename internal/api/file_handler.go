package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cloudbox/internal/domain"
	"github.com/shaiso/Cloudbox/internal/scratch"
	"github.com/shaiso/Cloudbox/internal/telemetry"
)

// multipartMemory — сколько формы держать в памяти, остальное на диск.
const multipartMemory = 32 << 20

// parseID читает положительный int64 из path-параметра.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseOptionalID читает необязательный ID папки из формы.
// "", "None" и "null" означают корень.
func parseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "None", "null":
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid folder id %q", raw)
	}
	return &id, nil
}

// UploadFile принимает файл и ставит его в очередь на загрузку.
// POST /api/v1/files (multipart: file, folder_id, task_id)
//
// Ответ 202 приходит сразу после постановки в очередь; прогресс
// отслеживается через /uploads/{task_id}/progress.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file too large")
			return
		}
		BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "no file")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		BadRequest(w, "empty filename")
		return
	}

	folderID, err := parseOptionalID(r.FormValue("folder_id"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if folderID != nil {
		if _, err := h.folders.GetByID(ctx, *folderID); HandleRepoError(w, logger, err, "folder not found") {
			return
		}
	}

	taskID := r.FormValue("task_id")
	if taskID == "" {
		taskID = uuid.NewString()
	}
	logger = telemetry.WithTaskID(logger, taskID)

	// 1. Сохраняем во временный каталог
	path, size, err := h.scratch.Stage(header.Filename, file)
	if errors.Is(err, scratch.ErrEmptyName) {
		BadRequest(w, "empty filename")
		return
	}
	if err != nil {
		InternalError(w, logger, err)
		return
	}

	// 2. Создаём запись-заглушку (remote_id = 0)
	record := &domain.File{
		Name:     filepath.Base(path),
		Size:     size,
		MimeType: header.Header.Get("Content-Type"),
		FolderID: folderID,
	}
	if err := h.files.Create(ctx, record); err != nil {
		h.release(path, logger)
		HandleRepoError(w, logger, err, "folder not found")
		return
	}

	// 3. Ставим в очередь; запись обновит воркер
	if err := h.transfer.SubmitUpload(ctx, path, record.ID, taskID); err != nil {
		h.release(path, logger)
		if derr := h.files.Delete(ctx, record.ID); derr != nil {
			logger.Warn("failed to remove placeholder record", "file_id", record.ID, "error", derr)
		}
		HandleBridgeError(w, logger, err)
		return
	}

	telemetry.WithFileID(logger, record.ID).Info("upload accepted", "name", record.Name, "size", size)

	Accepted(w, UploadResponse{
		Status: "uploading",
		TaskID: taskID,
		FileID: record.ID,
	})
}

// release удаляет подготовленный файл, ошибка только логируется.
func (h *Handler) release(path string, logger *slog.Logger) {
	if err := h.scratch.Release(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to release staged file", "path", path, "error", err)
	}
}

// UploadProgress возвращает прогресс загрузки.
// GET /api/v1/uploads/{task_id}/progress
func (h *Handler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	Success(w, ProgressResponse{
		TaskID:   taskID,
		Progress: h.transfer.Progress(taskID),
	})
}

// GetFile возвращает метаданные файла.
// GET /api/v1/files/{id}
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.files.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "file not found") {
		return
	}

	Success(w, FileFromDomain(*file))
}

// DownloadFile скачивает файл из хранилища и отдаёт клиенту.
// GET /api/v1/files/{id}/download
//
// Файл скачивается во временный файл целиком, затем отдаётся;
// временный файл удаляется в любом случае.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	id, err := parseID(r, "id")
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.files.GetByID(ctx, id)
	if HandleRepoError(w, logger, err, "file not found") {
		return
	}
	if !file.IsUploaded() {
		Conflict(w, "file is still uploading, please wait")
		return
	}

	tmp := h.scratch.DownloadPath()
	defer os.Remove(tmp)

	if err := h.transfer.DownloadToFile(ctx, file.RemoteID, tmp); err != nil {
		HandleBridgeError(w, telemetry.WithFileID(logger, id), err)
		return
	}

	f, err := os.Open(tmp)
	if err != nil {
		InternalError(w, logger, err)
		return
	}
	defer f.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))

	http.ServeContent(w, r, file.Name, time.Time{}, f)
}

// DeleteFile удаляет файл из хранилища и его запись.
// DELETE /api/v1/files/{id}
//
// Если удаление в хранилище не удалось, запись остаётся.
// Файл, который ещё загружается, удалить нельзя (409).
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	id, err := parseID(r, "id")
	if err != nil {
		BadRequest(w, "invalid file id")
		return
	}

	file, err := h.files.GetByID(ctx, id)
	if HandleRepoError(w, logger, err, "file not found") {
		return
	}

	if !file.IsUploaded() {
		Conflict(w, "file is still uploading, please wait")
		return
	}

	if err := h.transfer.DeleteRemote(ctx, []int64{file.RemoteID}); err != nil {
		HandleBridgeError(w, logger, err)
		return
	}

	if err := h.files.Delete(ctx, id); HandleRepoError(w, logger, err, "file not found") {
		return
	}

	telemetry.WithFileID(logger, id).Info("file deleted", "name", file.Name)
	NoContent(w)
}

// BulkDeleteFiles удаляет несколько файлов.
// POST /api/v1/files/bulk-delete
//
// Файлы, которые ещё загружаются, пропускаются и возвращаются в skipped.
func (h *Handler) BulkDeleteFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if len(req.FileIDs) == 0 {
		BadRequest(w, "no files selected")
		return
	}

	files, err := h.files.ListByIDs(ctx, req.FileIDs)
	if HandleRepoError(w, logger, err, "") {
		return
	}

	uploaded := make([]domain.File, 0, len(files))
	skipped := []int64{}
	for _, f := range files {
		if f.IsUploaded() {
			uploaded = append(uploaded, f)
		} else {
			skipped = append(skipped, f.ID)
		}
	}

	if err := h.transfer.DeleteRemote(ctx, domain.RemoteIDs(uploaded)); err != nil {
		HandleBridgeError(w, logger, err)
		return
	}

	ids := make([]int64, len(uploaded))
	for i, f := range uploaded {
		ids[i] = f.ID
	}

	deleted, err := h.files.DeleteMany(ctx, ids)
	if HandleRepoError(w, logger, err, "") {
		return
	}

	logger.Info("files deleted", "requested", len(req.FileIDs), "deleted", deleted, "skipped", len(skipped))
	Success(w, BulkDeleteResponse{Deleted: deleted, Skipped: skipped})
}

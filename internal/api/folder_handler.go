package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shaiso/Cloudbox/internal/domain"
	"github.com/shaiso/Cloudbox/internal/telemetry"
)

// RootContents возвращает содержимое корня.
// GET /api/v1/folders/contents
func (h *Handler) RootContents(w http.ResponseWriter, r *http.Request) {
	h.writeContents(w, r, nil)
}

// FolderContents возвращает содержимое папки с breadcrumbs.
// GET /api/v1/folders/{id}/contents
func (h *Handler) FolderContents(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequest(w, "invalid folder id")
		return
	}
	h.writeContents(w, r, &id)
}

func (h *Handler) writeContents(w http.ResponseWriter, r *http.Request, folderID *int64) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	contents := domain.FolderContents{Breadcrumbs: []domain.Folder{}}

	if folderID != nil {
		crumbs, err := h.folders.Breadcrumbs(ctx, *folderID)
		if HandleRepoError(w, logger, err, "folder not found") {
			return
		}
		contents.Breadcrumbs = crumbs
		current := crumbs[len(crumbs)-1]
		contents.Folder = &current
	}

	folders, err := h.folders.ListChildren(ctx, folderID)
	if HandleRepoError(w, logger, err, "") {
		return
	}
	contents.Folders = folders

	files, err := h.files.ListByFolder(ctx, folderID)
	if HandleRepoError(w, logger, err, "") {
		return
	}
	contents.Files = files

	Success(w, ContentsFromDomain(contents))
}

// CreateFolder создаёт папку.
// POST /api/v1/folders
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := telemetry.FromContext(ctx)

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		BadRequest(w, "name is required")
		return
	}
	if len(name) > 255 {
		BadRequest(w, "name is too long")
		return
	}
	if req.ParentID != nil && *req.ParentID <= 0 {
		BadRequest(w, "invalid parent id")
		return
	}

	folder := &domain.Folder{
		Name:     name,
		ParentID: req.ParentID,
	}
	if err := h.folders.Create(ctx, folder); HandleRepoError(w, logger, err, "parent folder not found") {
		return
	}

	logger.Info("folder created", "folder_id", folder.ID, "name", folder.Name)
	Created(w, FolderFromDomain(*folder))
}

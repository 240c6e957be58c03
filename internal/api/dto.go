package api

import (
	"time"

	"github.com/shaiso/Cloudbox/internal/bridge"
	"github.com/shaiso/Cloudbox/internal/domain"
)

// File DTOs

// FileResponse — ответ с файлом.
type FileResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type,omitempty"`
	RemoteID  int64     `json:"remote_id"`
	Uploaded  bool      `json:"uploaded"`
	FolderID  *int64    `json:"folder_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileFromDomain конвертирует domain.File в FileResponse.
func FileFromDomain(f domain.File) FileResponse {
	return FileResponse{
		ID:        f.ID,
		Name:      f.Name,
		Size:      f.Size,
		MimeType:  f.MimeType,
		RemoteID:  f.RemoteID,
		Uploaded:  f.IsUploaded(),
		FolderID:  f.FolderID,
		CreatedAt: f.CreatedAt,
	}
}

// UploadResponse — ответ на приём файла.
type UploadResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	FileID int64  `json:"file_id"`
}

// ProgressResponse — прогресс загрузки: 0..100, -1 при ошибке.
type ProgressResponse struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"`
}

// BulkDeleteRequest — запрос на удаление нескольких файлов.
type BulkDeleteRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

// BulkDeleteResponse — результат удаления.
// Skipped — файлы, которые ещё загружаются.
type BulkDeleteResponse struct {
	Deleted int64   `json:"deleted"`
	Skipped []int64 `json:"skipped"`
}

// Folder DTOs

// CreateFolderRequest — запрос на создание папки.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// FolderResponse — ответ с папкой.
type FolderResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FolderFromDomain конвертирует domain.Folder в FolderResponse.
func FolderFromDomain(f domain.Folder) FolderResponse {
	return FolderResponse{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		CreatedAt: f.CreatedAt,
	}
}

func foldersFromDomain(folders []domain.Folder) []FolderResponse {
	result := make([]FolderResponse, len(folders))
	for i, f := range folders {
		result[i] = FolderFromDomain(f)
	}
	return result
}

// ContentsResponse — содержимое папки.
type ContentsResponse struct {
	Folder      *FolderResponse  `json:"folder,omitempty"`
	Breadcrumbs []FolderResponse `json:"breadcrumbs"`
	Folders     []FolderResponse `json:"folders"`
	Files       []FileResponse   `json:"files"`
}

// ContentsFromDomain конвертирует domain.FolderContents в ContentsResponse.
func ContentsFromDomain(c domain.FolderContents) ContentsResponse {
	resp := ContentsResponse{
		Breadcrumbs: foldersFromDomain(c.Breadcrumbs),
		Folders:     foldersFromDomain(c.Folders),
		Files:       make([]FileResponse, len(c.Files)),
	}
	if c.Folder != nil {
		f := FolderFromDomain(*c.Folder)
		resp.Folder = &f
	}
	for i, f := range c.Files {
		resp.Files[i] = FileFromDomain(f)
	}
	return resp
}

// Status DTOs

// CredentialFlags — какие учётные данные заданы (без значений).
type CredentialFlags struct {
	AccessKeyID     bool `json:"access_key_id"`
	SecretAccessKey bool `json:"secret_access_key"`
	SessionToken    bool `json:"session_token"`
}

// StatusResponse — диагностика сервиса.
type StatusResponse struct {
	Credentials       CredentialFlags `json:"credentials"`
	SessionFileExists bool            `json:"session_file_exists"`
	PendingUploads    int64           `json:"pending_uploads"`
	Storage           bridge.Status   `json:"storage"`
}

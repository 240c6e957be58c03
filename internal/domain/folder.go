package domain

import "time"

// Folder — папка. Папки образуют дерево через ParentID.
type Folder struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FolderContents — содержимое папки для отображения.
type FolderContents struct {
	// Folder — текущая папка; nil для корня.
	Folder *Folder `json:"folder,omitempty"`

	// Breadcrumbs — путь от корня до текущей папки включительно.
	Breadcrumbs []Folder `json:"breadcrumbs"`

	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

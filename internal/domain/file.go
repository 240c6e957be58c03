package domain

import "time"

// File — метаданные файла, хранящегося во внешнем хранилище.
//
// Запись создаётся сразу после приёма файла с RemoteID = 0 и
// дополняется воркером, когда загрузка завершилась.
type File struct {
	// ID — идентификатор записи.
	ID int64 `json:"id"`

	// Name — имя файла (очищенное от путей).
	Name string `json:"name"`

	// Size — размер в байтах.
	Size int64 `json:"size"`

	// MimeType — тип содержимого, присланный клиентом.
	MimeType string `json:"mime_type,omitempty"`

	// RemoteID — ID сообщения во внешнем хранилище. 0 — ещё загружается.
	RemoteID int64 `json:"remote_id"`

	// Location — где лежит сообщение (bucket, канал и т.п.).
	Location string `json:"location,omitempty"`

	// FolderID — родительская папка; nil — корень.
	FolderID *int64 `json:"folder_id,omitempty"`

	// CreatedAt — время приёма файла.
	CreatedAt time.Time `json:"created_at"`
}

// IsUploaded возвращает true, если файл уже лежит во внешнем хранилище.
func (f *File) IsUploaded() bool {
	return f.RemoteID > 0
}

// RemoteIDs собирает ID сообщений загруженных файлов.
// Файлы, которые ещё загружаются, пропускаются.
func RemoteIDs(files []File) []int64 {
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		if f.IsUploaded() {
			ids = append(ids, f.RemoteID)
		}
	}
	return ids
}

package api

import (
	"context"
	"io"
	"log/slog"

	"github.com/shaiso/Cloudbox/internal/bridge"
	"github.com/shaiso/Cloudbox/internal/domain"
	"github.com/shaiso/Cloudbox/internal/remote"
)

// FileStore — метаданные файлов (repo.FileRepo).
type FileStore interface {
	Create(ctx context.Context, f *domain.File) error
	GetByID(ctx context.Context, id int64) (*domain.File, error)
	ListByFolder(ctx context.Context, folderID *int64) ([]domain.File, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.File, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

// FolderStore — дерево папок (repo.FolderRepo).
type FolderStore interface {
	Create(ctx context.Context, f *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	ListChildren(ctx context.Context, parentID *int64) ([]domain.Folder, error)
	Breadcrumbs(ctx context.Context, id int64) ([]domain.Folder, error)
}

// FileTransfer — операции с внешним хранилищем (bridge.Service).
type FileTransfer interface {
	SubmitUpload(ctx context.Context, path string, recordID int64, taskID string) error
	DownloadToFile(ctx context.Context, remoteID int64, path string) error
	DeleteRemote(ctx context.Context, ids []int64) error
	Progress(taskID string) int
	Status() bridge.Status
}

// Stager — каталог временных файлов (scratch.Dir).
type Stager interface {
	Stage(name string, r io.Reader) (string, int64, error)
	Release(path string) error
	DownloadPath() string
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	files    FileStore
	folders  FolderStore
	transfer FileTransfer
	scratch  Stager

	credentials    remote.Credentials
	sessionFile    string
	maxUploadBytes int64

	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Files    FileStore
	Folders  FolderStore
	Transfer FileTransfer
	Scratch  Stager

	// Credentials и SessionFile показываются в /status (только флаги).
	Credentials remote.Credentials
	SessionFile string

	MaxUploadBytes int64 // default: 2 GiB
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 2 << 30
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		files:          cfg.Files,
		folders:        cfg.Folders,
		transfer:       cfg.Transfer,
		scratch:        cfg.Scratch,
		credentials:    cfg.Credentials,
		sessionFile:    cfg.SessionFile,
		maxUploadBytes: maxUpload,
		logger:         logger,
	}
}

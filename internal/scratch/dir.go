package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Префиксы временных файлов.
const (
	stagePrefix    = "up_"
	downloadPrefix = "dl_"
)

// ErrEmptyName — имя файла пустое после очистки.
var ErrEmptyName = errors.New("empty file name")

// Dir — каталог временных файлов.
type Dir struct {
	root string
}

// New создаёт каталог root (если его нет).
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("scratch dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root возвращает путь каталога.
func (d *Dir) Root() string {
	return d.root
}

// SanitizeName оставляет от имени только безопасную базовую часть.
// Возвращает ErrEmptyName, если ничего не осталось.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return "", ErrEmptyName
	}
	return clean, nil
}

// Stage сохраняет содержимое r под уникальным именем и возвращает
// путь к файлу и его размер. При ошибке файл удаляется.
//
// Базовое имя файла сохраняется в конце пути, чтобы хранилище видело
// исходное имя.
func (d *Dir) Stage(name string, r io.Reader) (path string, size int64, err error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", 0, err
	}

	dir := filepath.Join(d.root, stagePrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create stage dir: %w", err)
	}

	path = filepath.Join(dir, clean)
	f, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	size, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", 0, fmt.Errorf("write staged file: %w", err)
	}

	return path, size, nil
}

// Release удаляет подготовленный файл вместе с его каталогом.
// Отсутствующий файл не считается ошибкой.
func (d *Dir) Release(path string) error {
	dir := filepath.Dir(path)
	if filepath.Dir(dir) != filepath.Clean(d.root) || !strings.HasPrefix(filepath.Base(dir), stagePrefix) {
		return os.Remove(path)
	}
	return os.RemoveAll(dir)
}

// DownloadPath возвращает уникальный путь для временного скачивания.
func (d *Dir) DownloadPath() string {
	return filepath.Join(d.root, downloadPrefix+uuid.NewString())
}

// Sweep удаляет временные файлы старше maxAge.
// Возвращает количество удалённых записей.
func (d *Dir) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	var removed int
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, stagePrefix) && !strings.HasPrefix(name, downloadPrefix) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue // удалён параллельно
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}

		if err := os.RemoveAll(filepath.Join(d.root, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

package scratch

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "scratch"))
	if err != nil {
		t.Fatalf("new scratch dir: %v", err)
	}
	return d
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"report.pdf", "report.pdf", false},
		{"../../etc/passwd", "passwd", false},
		{`C:\Users\me\photo.jpg`, "photo.jpg", false},
		{"my file (1).txt", "my_file_1.txt", false},
		{"отчёт.docx", "отчёт.docx", false},
		{".hidden", "hidden", false},
		{"..", "", true},
		{"", "", true},
		{"???", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyName) {
					t.Errorf("expected ErrEmptyName, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDir_StageAndRelease(t *testing.T) {
	d := newTestDir(t)

	path, size, err := d.Stage("../a.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if size != 5 {
		t.Errorf("expected size 5, got %d", size)
	}
	if filepath.Base(path) != "a.txt" {
		t.Errorf("staged file should keep its base name, got %s", path)
	}
	if !strings.HasPrefix(path, d.Root()) {
		t.Errorf("staged file outside scratch dir: %s", path)
	}

	// Одинаковые имена не конфликтуют.
	other, _, err := d.Stage("a.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("stage second: %v", err)
	}
	if other == path {
		t.Error("expected unique paths for equal names")
	}

	if err := d.Release(path); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
		t.Error("stage dir should be removed")
	}
	if err := d.Release(path); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestDir_StageFailureCleansUp(t *testing.T) {
	d := newTestDir(t)

	if _, _, err := d.Stage("a.txt", failingReader{}); err == nil {
		t.Fatal("expected error")
	}

	entries, _ := os.ReadDir(d.Root())
	if len(entries) != 0 {
		t.Errorf("expected empty scratch dir, got %d entries", len(entries))
	}
}

func TestDir_DownloadPath(t *testing.T) {
	d := newTestDir(t)

	a, b := d.DownloadPath(), d.DownloadPath()
	if a == b {
		t.Error("download paths should be unique")
	}
	if !strings.HasPrefix(filepath.Base(a), downloadPrefix) {
		t.Errorf("unexpected download path %s", a)
	}
}

func TestDir_Sweep(t *testing.T) {
	d := newTestDir(t)

	stale, _, _ := d.Stage("old.txt", strings.NewReader("x"))
	fresh, _, _ := d.Stage("new.txt", strings.NewReader("x"))
	dl := d.DownloadPath()
	os.WriteFile(dl, []byte("x"), 0o644)
	foreign := filepath.Join(d.Root(), "keep.txt")
	os.WriteFile(foreign, []byte("x"), 0o644)

	old := time.Now().Add(-48 * time.Hour)
	os.Chtimes(filepath.Dir(stale), old, old)
	os.Chtimes(dl, old, old)

	removed, err := d.Sweep(24*time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh staged file should survive")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("unrelated files should survive")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale staged file should be removed")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, expr := range []string{"*/10 * * * *", "@hourly", "@every 5m"} {
		if err := ValidateSchedule(expr); err != nil {
			t.Errorf("%q: unexpected error %v", expr, err)
		}
	}
	for _, expr := range []string{"", "not cron", "* * *"} {
		if err := ValidateSchedule(expr); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

func TestNewJanitor_Defaults(t *testing.T) {
	j, err := NewJanitor(JanitorConfig{Dir: newTestDir(t)})
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}
	if j.schedule != DefaultSchedule || j.maxAge != DefaultMaxAge {
		t.Errorf("unexpected defaults: %s %s", j.schedule, j.maxAge)
	}

	if _, err := NewJanitor(JanitorConfig{Dir: newTestDir(t), Schedule: "bogus"}); err == nil {
		t.Error("expected error for bad schedule")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	d := newTestDir(t)
	j, _ := NewJanitor(JanitorConfig{
		Dir:    d,
		MaxAge: time.Hour,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	path, _, _ := d.Stage("a.txt", strings.NewReader("x"))
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	j.Sweep()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("janitor should remove stale file")
	}
}

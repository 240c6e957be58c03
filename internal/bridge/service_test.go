package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Cloudbox/internal/mq"
	"github.com/shaiso/Cloudbox/internal/remote"
	"github.com/shaiso/Cloudbox/internal/repo"
)

var testCredentials = remote.Credentials{AccessKeyID: "id", SecretAccessKey: "secret"}

// --- Fakes ---

type recordCall struct {
	recordID, remoteID int64
	location           string
}

type fakeRecords struct {
	mu    sync.Mutex
	calls []recordCall
	err   error
}

func (f *fakeRecords) AttachRemote(_ context.Context, recordID, remoteID int64, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordCall{recordID, remoteID, location})
	return f.err
}

func (f *fakeRecords) Calls() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall(nil), f.calls...)
}

type fakeSessions struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fakeSessions) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeSessions) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

type fakeEvents struct {
	mu       sync.Mutex
	uploaded []mq.FileUploadedPayload
	failed   []mq.UploadFailedPayload
	deleted  []mq.FilesDeletedPayload
}

func (f *fakeEvents) PublishFileUploaded(_ context.Context, p mq.FileUploadedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, p)
	return nil
}

func (f *fakeEvents) PublishUploadFailed(_ context.Context, p mq.UploadFailedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, p)
	return nil
}

func (f *fakeEvents) PublishFilesDeleted(_ context.Context, p mq.FilesDeletedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return nil
}

// stuckEvents не отвечает, пока не истечёт контекст публикации.
type stuckEvents struct {
	mu       sync.Mutex
	attempts int
	deadline bool
}

func (f *stuckEvents) wait(ctx context.Context) error {
	f.mu.Lock()
	f.attempts++
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

func (f *stuckEvents) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *stuckEvents) PublishFileUploaded(ctx context.Context, _ mq.FileUploadedPayload) error {
	return f.wait(ctx)
}

func (f *stuckEvents) PublishUploadFailed(ctx context.Context, _ mq.UploadFailedPayload) error {
	return f.wait(ctx)
}

func (f *stuckEvents) PublishFilesDeleted(ctx context.Context, _ mq.FilesDeletedPayload) error {
	return f.wait(ctx)
}

// panicClient паникует при подключении: авария вне обработки команды.
type panicClient struct {
	*remote.Memory
}

func (panicClient) Connect(context.Context) error {
	panic("connect exploded")
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService создаёт и запускает Service с короткими таймаутами.
func newTestService(t *testing.T, client remote.Client, mutate func(*Config)) *Service {
	t.Helper()

	cfg := Config{
		Client:         client,
		Credentials:    testCredentials,
		ConnectTimeout: time.Second,
		ReadyTimeout:   2 * time.Second,
		ResultTimeout:  5 * time.Second,
		IdleTimeout:    10 * time.Millisecond,
		Logger:         testLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func stageFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Upload Tests ---

func TestService_UploadBlocking(t *testing.T) {
	mem := remote.NewMemory()
	records := &fakeRecords{}
	events := &fakeEvents{}
	s := newTestService(t, mem, func(c *Config) {
		c.Records = records
		c.Events = events
	})

	p := stageFile(t, t.TempDir(), "a.txt", "hello")

	v, err := s.SubmitBlocking(context.Background(), Command{
		Kind:     CommandUpload,
		Path:     p,
		RecordID: 7,
		TaskID:   "task-a",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	result, ok := v.(*UploadResult)
	if !ok {
		t.Fatalf("expected *UploadResult, got %T", v)
	}
	if result.ID <= 0 {
		t.Errorf("expected positive id, got %d", result.ID)
	}

	calls := records.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 record update, got %d", len(calls))
	}
	if calls[0].recordID != 7 || calls[0].remoteID != result.ID {
		t.Errorf("unexpected record update %+v", calls[0])
	}

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("staged file should be removed after upload")
	}
	if got := s.Progress("task-a"); got != ProgressDone {
		t.Errorf("expected progress 100, got %d", got)
	}
	if !mem.Has(result.ID) {
		t.Error("message should be stored")
	}

	waitFor(t, "file.uploaded event", func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.uploaded) == 1
	})

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.uploaded[0].RemoteID != result.ID {
		t.Errorf("unexpected file.uploaded event %+v", events.uploaded[0])
	}
}

func TestService_UploadFile(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)

	result, err := s.UploadFile(context.Background(), stageFile(t, t.TempDir(), "b.txt", "x"), "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.ID != 1 {
		t.Errorf("expected first id 1, got %d", result.ID)
	}
}

func TestService_SubmitUpload_Async(t *testing.T) {
	mem := remote.NewMemory()
	records := &fakeRecords{}
	s := newTestService(t, mem, func(c *Config) { c.Records = records })

	p := stageFile(t, t.TempDir(), "c.txt", "async")
	if err := s.SubmitUpload(context.Background(), p, 11, "task-c"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, "upload to finish", func() bool { return s.Progress("task-c") == ProgressDone })
	waitFor(t, "record update", func() bool { return len(records.Calls()) == 1 })

	if got := records.Calls()[0].recordID; got != 11 {
		t.Errorf("expected record 11, got %d", got)
	}
}

func TestService_SubmitAsync_RequiresTaskID(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)

	err := s.SubmitAsync(context.Background(), Command{Kind: CommandUpload, Path: "x"})
	if !errors.Is(err, ErrTaskIDRequired) {
		t.Errorf("expected ErrTaskIDRequired, got %v", err)
	}
}

func TestService_UploadFailure_ProgressSentinel(t *testing.T) {
	mem := remote.NewMemory()
	mem.SendHook = func(string) error { return errors.New("disk on fire") }
	events := &fakeEvents{}
	s := newTestService(t, mem, func(c *Config) { c.Events = events })

	p := stageFile(t, t.TempDir(), "d.txt", "data")
	if err := s.SubmitUpload(context.Background(), p, 0, "task-d"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, "failure sentinel", func() bool { return s.Progress("task-d") == ProgressFailed })

	if _, err := os.Stat(p); err != nil {
		t.Error("staged file must survive a failed upload")
	}

	waitFor(t, "file.upload_failed event", func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.failed) == 1
	})

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.failed[0].TaskID != "task-d" {
		t.Errorf("expected one file.upload_failed event, got %+v", events.failed)
	}
}

func TestService_RecordUpdateFailure(t *testing.T) {
	records := &fakeRecords{err: errors.New("db down")}
	s := newTestService(t, remote.NewMemory(), func(c *Config) { c.Records = records })

	_, err := s.SubmitBlocking(context.Background(), Command{
		Kind:     CommandUpload,
		Path:     stageFile(t, t.TempDir(), "e.txt", "x"),
		RecordID: 3,
		TaskID:   "task-e",
	})
	if err == nil || !strings.Contains(err.Error(), "update record 3") {
		t.Errorf("expected record update error, got %v", err)
	}
	if got := s.Progress("task-e"); got != ProgressFailed {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestService_RecordDeletedDuringUpload(t *testing.T) {
	mem := remote.NewMemory()
	records := &fakeRecords{err: fmt.Errorf("attach: %w", repo.ErrNotFound)}
	s := newTestService(t, mem, func(c *Config) { c.Records = records })

	p := stageFile(t, t.TempDir(), "gone.txt", "x")
	_, err := s.SubmitBlocking(context.Background(), Command{
		Kind:     CommandUpload,
		Path:     p,
		RecordID: 4,
		TaskID:   "task-gone",
	})
	if !errors.Is(err, ErrRecordGone) {
		t.Fatalf("expected ErrRecordGone, got %v", err)
	}

	if mem.Has(1) {
		t.Error("message without a record must be removed")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("staged file should be removed")
	}
	if got := s.Progress("task-gone"); got != ProgressFailed {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestService_TaskIDInUse(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)
	dir := t.TempDir()
	ctx := context.Background()

	if err := s.SubmitUpload(ctx, stageFile(t, dir, "q1.txt", "x"), 0, "task-q"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFor(t, "upload to finish", func() bool { return s.Progress("task-q") == ProgressDone })

	err := s.SubmitUpload(ctx, stageFile(t, dir, "q2.txt", "x"), 0, "task-q")
	if !errors.Is(err, ErrTaskIDInUse) {
		t.Fatalf("expected ErrTaskIDInUse, got %v", err)
	}

	_, err = s.SubmitBlocking(ctx, Command{Kind: CommandUpload, Path: stageFile(t, dir, "q3.txt", "x"), TaskID: "task-q"})
	if !errors.Is(err, ErrTaskIDInUse) {
		t.Fatalf("expected ErrTaskIDInUse for blocking upload, got %v", err)
	}

	if got := s.Progress("task-q"); got != ProgressDone {
		t.Errorf("finished task must stay at 100, got %d", got)
	}
	if s.queue.Len() != 0 {
		t.Error("rejected uploads must not be enqueued")
	}
}

// --- Event Tests ---

func TestService_StuckBrokerDoesNotBlockWorker(t *testing.T) {
	events := &stuckEvents{}
	s := newTestService(t, remote.NewMemory(), func(c *Config) {
		c.Events = events
		c.PublishTimeout = 30 * time.Millisecond
	})
	dir := t.TempDir()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := s.UploadFile(context.Background(), stageFile(t, dir, fmt.Sprintf("s%d.txt", i), "x"), ""); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("uploads waited for the broker: %s", elapsed)
	}

	// Публикации ограничены таймаутом, очередь событий продвигается.
	waitFor(t, "publish attempts", func() bool { return events.Attempts() >= 2 })

	events.mu.Lock()
	defer events.mu.Unlock()
	if !events.deadline {
		t.Error("publish context must carry a deadline")
	}
}

func TestService_EventBufferOverflowDrops(t *testing.T) {
	events := &stuckEvents{}
	s := newTestService(t, remote.NewMemory(), func(c *Config) {
		c.Events = events
		c.EventBuffer = 1
		c.PublishTimeout = time.Minute
	})
	dir := t.TempDir()

	for i := 0; i < 4; i++ {
		if _, err := s.UploadFile(context.Background(), stageFile(t, dir, fmt.Sprintf("o%d.txt", i), "x"), ""); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	if n := len(s.relay.pending); n > 1 {
		t.Errorf("buffer must stay bounded, got %d", n)
	}

}

// --- Serialization Tests ---

func TestService_CommandsNeverOverlap(t *testing.T) {
	mem := remote.NewMemory()
	mem.OpDelay = time.Millisecond
	s := newTestService(t, mem, nil)

	dir := t.TempDir()
	const callers = 16

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := stageFile(t, dir, fmt.Sprintf("f%d.txt", i), "payload")
			if _, err := s.UploadFile(context.Background(), p, ""); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("upload: %v", err)
	}
	if v := mem.Violations(); v != 0 {
		t.Errorf("expected no overlapping client calls, got %d", v)
	}
}

func TestService_FIFOOrder(t *testing.T) {
	mem := remote.NewMemory()
	mem.OpDelay = time.Millisecond
	s := newTestService(t, mem, nil)

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		p := stageFile(t, dir, fmt.Sprintf("o%d.txt", i), "x")
		paths = append(paths, p)
		if err := s.SubmitUpload(context.Background(), p, 0, fmt.Sprintf("task-%d", i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	waitFor(t, "all uploads", func() bool { return s.Progress("task-4") == ProgressDone })

	var sent []string
	for _, c := range mem.Calls() {
		if c.Op == "send" {
			sent = append(sent, c.Arg)
		}
	}
	if len(sent) != len(paths) {
		t.Fatalf("expected %d sends, got %d", len(paths), len(sent))
	}
	for i := range paths {
		if sent[i] != paths[i] {
			t.Errorf("send %d: expected %s, got %s", i, paths[i], sent[i])
		}
	}
}

func TestService_ConcurrentAsyncUploadsProgress(t *testing.T) {
	mem := remote.NewMemory()
	mem.ChunkSize = 4
	mem.OpDelay = time.Millisecond
	s := newTestService(t, mem, nil)

	dir := t.TempDir()
	content := strings.Repeat("z", 64)
	tasks := []string{"t1", "t2"}
	for _, task := range tasks {
		if err := s.SubmitUpload(context.Background(), stageFile(t, dir, task+".bin", content), 0, task); err != nil {
			t.Fatalf("submit %s: %v", task, err)
		}
	}

	last := map[string]int{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		cur := map[string]int{}
		inFlight := 0
		for _, task := range tasks {
			p := s.Progress(task)
			if p < last[task] {
				t.Fatalf("%s progress decreased: %d -> %d", task, last[task], p)
			}
			if p > 0 && p < ProgressDone {
				inFlight++
			}
			cur[task] = p
		}
		// Загрузки выполняются по одной.
		if inFlight > 1 {
			t.Fatalf("both uploads in flight at once: %v", cur)
		}
		last = cur

		if cur["t1"] == ProgressDone && cur["t2"] == ProgressDone {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("uploads did not finish: %v", last)
}

// --- Result Slot Tests ---

func TestService_NoSlotLeak(t *testing.T) {
	mem := remote.NewMemory()
	s := newTestService(t, mem, nil)
	ctx := context.Background()

	// успех
	if _, err := s.UploadFile(ctx, stageFile(t, t.TempDir(), "g.txt", "x"), ""); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if n := s.router.Len(); n != 0 {
		t.Errorf("after success: %d slots left", n)
	}

	// ошибка
	if err := s.DownloadTo(ctx, 999, io.Discard); err == nil {
		t.Fatal("expected error")
	}
	if n := s.router.Len(); n != 0 {
		t.Errorf("after error: %d slots left", n)
	}
}

func TestService_ResultTimeout(t *testing.T) {
	mem := remote.NewMemory()
	mem.OpDelay = 300 * time.Millisecond
	s := newTestService(t, mem, func(c *Config) { c.ResultTimeout = 30 * time.Millisecond })

	_, err := s.UploadFile(context.Background(), stageFile(t, t.TempDir(), "h.txt", "x"), "")
	if !errors.Is(err, ErrResultTimeout) {
		t.Fatalf("expected ErrResultTimeout, got %v", err)
	}
	if n := s.router.Len(); n != 0 {
		t.Errorf("after timeout: %d slots left", n)
	}

	// Поздний ответ отбрасывается, воркер продолжает работать.
	waitFor(t, "late command to finish", func() bool { return s.queue.Len() == 0 && mem.Has(1) })
}

// --- Download / Delete Tests ---

func TestService_DownloadRoundTrip(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)
	ctx := context.Background()

	result, err := s.UploadFile(ctx, stageFile(t, t.TempDir(), "i.txt", "round trip"), "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	var buf bytes.Buffer
	if err := s.DownloadTo(ctx, result.ID, &buf); err != nil {
		t.Fatalf("download: %v", err)
	}
	if buf.String() != "round trip" {
		t.Errorf("unexpected content %q", buf.String())
	}

	out := filepath.Join(t.TempDir(), "out.txt")
	if err := s.DownloadToFile(ctx, result.ID, out); err != nil {
		t.Fatalf("download to file: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "round trip" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestService_DownloadMissing(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)

	out := filepath.Join(t.TempDir(), "missing.bin")
	err := s.DownloadToFile(context.Background(), 999, out)
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should say not found: %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial file should be removed")
	}
}

func TestService_DeleteRemote(t *testing.T) {
	mem := remote.NewMemory()
	events := &fakeEvents{}
	s := newTestService(t, mem, func(c *Config) { c.Events = events })
	ctx := context.Background()

	result, err := s.UploadFile(ctx, stageFile(t, t.TempDir(), "j.txt", "x"), "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Только нулевые ID: команда не отправляется.
	if err := s.DeleteRemote(ctx, []int64{0, -1}); err != nil {
		t.Fatalf("delete zeros: %v", err)
	}
	for _, c := range mem.Calls() {
		if c.Op == "delete" {
			t.Fatal("no delete call expected for zero ids")
		}
	}

	if err := s.DeleteRemote(ctx, []int64{0, result.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mem.Has(result.ID) {
		t.Error("message should be deleted")
	}

	waitFor(t, "file.deleted event", func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.deleted) == 1
	})

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.deleted[0].RemoteIDs) != 1 {
		t.Errorf("expected one file.deleted event with one id, got %+v", events.deleted)
	}
}

func TestService_UnknownCommand(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)

	_, err := s.SubmitBlocking(context.Background(), Command{Kind: "rename"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

// --- Startup Tests ---

func TestService_StartTwice(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), nil)
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestService_NotStarted(t *testing.T) {
	s := New(Config{
		Client:       remote.NewMemory(),
		Credentials:  testCredentials,
		ReadyTimeout: 20 * time.Millisecond,
		Logger:       testLogger(),
	})

	_, err := s.UploadFile(context.Background(), "x", "")
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if s.queue.Len() != 0 {
		t.Error("command must not be enqueued before readiness")
	}

	st := s.Status()
	if st.Started || st.Ready || st.State != "NOT_STARTED" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestService_MissingCredentialsFailsFast(t *testing.T) {
	mem := remote.NewMemory()
	s := newTestService(t, mem, func(c *Config) {
		c.Credentials = remote.Credentials{}
		c.ReadyTimeout = 45 * time.Second
	})

	start := time.Now()
	_, err := s.UploadFile(context.Background(), "x", "")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected fast failure, took %s", elapsed)
	}
	if len(mem.Calls()) != 0 {
		t.Error("client must not be touched without credentials")
	}

	st := s.Status()
	if !st.Ready || st.WorkerRunning || st.State != "FAILED" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestService_MissingCredentialsRejectsEarlyCallers(t *testing.T) {
	s := newTestService(t, remote.NewMemory(), func(c *Config) {
		c.Credentials = remote.Credentials{}
	})

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SubmitAsync(context.Background(), Command{
				Kind:   CommandUpload,
				Path:   "x",
				TaskID: fmt.Sprintf("early-%d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	}
	if s.queue.Len() != 0 {
		t.Errorf("%d commands accepted by a worker that never ran", s.queue.Len())
	}
}

func TestService_GateOpenBeforeDoneClosed(t *testing.T) {
	s := New(Config{Client: remote.NewMemory(), Logger: testLogger()})

	// Состояние между открытием gate и закрытием done.
	err := fmt.Errorf("%w: [access_key_id]", ErrMissingCredentials)
	s.worker.exit(err)
	s.worker.fail(err)

	if err := s.SubmitAsync(context.Background(), Command{Kind: CommandUpload, Path: "x", TaskID: "t"}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if s.queue.Len() != 0 {
		t.Error("command must not be enqueued")
	}
}

func TestService_ConnectTimeoutDegraded(t *testing.T) {
	mem := remote.NewMemory()
	mem.ConnectDelay = 2 * time.Second
	s := newTestService(t, mem, func(c *Config) { c.ConnectTimeout = 30 * time.Millisecond })

	p := stageFile(t, t.TempDir(), "k.txt", "x")
	_, err := s.SubmitBlocking(context.Background(), Command{Kind: CommandUpload, Path: p, TaskID: "task-k"})
	if !errors.Is(err, remote.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if got := s.Progress("task-k"); got != ProgressFailed {
		t.Errorf("expected -1, got %d", got)
	}

	st := s.Status()
	if !st.Degraded || !st.WorkerRunning || st.State != "FAILED" {
		t.Errorf("unexpected status %+v", st)
	}
	if !strings.Contains(st.StartError, "connect timeout") {
		t.Errorf("expected connect timeout in status, got %q", st.StartError)
	}
}

func TestService_UnauthorizedDegraded(t *testing.T) {
	mem := remote.NewMemory()
	mem.Unauthorized = true
	mem.Token = "tok"
	sessions := &fakeSessions{}
	s := newTestService(t, mem, func(c *Config) { c.Sessions = sessions })

	_, err := s.UploadFile(context.Background(), stageFile(t, t.TempDir(), "l.txt", "x"), "")
	if !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	st := s.Status()
	if !st.Ready || !st.Degraded || st.State != "READY" {
		t.Errorf("unexpected status %+v", st)
	}
	if len(sessions.Tokens()) != 0 {
		t.Error("unauthorized session must not be saved")
	}
}

func TestService_SessionSaved(t *testing.T) {
	mem := remote.NewMemory()
	mem.Token = "tok"
	sessions := &fakeSessions{}
	s := newTestService(t, mem, func(c *Config) { c.Sessions = sessions })

	if _, err := s.UploadFile(context.Background(), stageFile(t, t.TempDir(), "m.txt", "x"), ""); err != nil {
		t.Fatalf("upload: %v", err)
	}

	tokens := sessions.Tokens()
	if len(tokens) != 1 || tokens[0] != "tok" {
		t.Errorf("expected saved token, got %v", tokens)
	}
	if s.Status().Degraded {
		t.Error("authorized service should not be degraded")
	}
	if s.State() != StateReady {
		t.Errorf("expected READY, got %s", s.State())
	}
}

func TestService_WorkerCrash(t *testing.T) {
	s := newTestService(t, panicClient{remote.NewMemory()}, func(c *Config) {
		c.ReadyTimeout = 45 * time.Second
	})

	start := time.Now()
	_, err := s.UploadFile(context.Background(), "x", "")
	if !errors.Is(err, ErrWorkerCrashed) {
		t.Fatalf("expected ErrWorkerCrashed, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("crash should fail calls fast")
	}

	st := s.Status()
	if st.WorkerRunning || !strings.Contains(st.StartError, "crashed") {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestService_CommandPanicIsolated(t *testing.T) {
	mem := remote.NewMemory()
	var once sync.Once
	mem.SendHook = func(string) error {
		once.Do(func() { panic("bad file") })
		return nil
	}
	s := newTestService(t, mem, nil)
	dir := t.TempDir()

	_, err := s.UploadFile(context.Background(), stageFile(t, dir, "n1.txt", "x"), "")
	if !errors.Is(err, ErrCommandPanic) {
		t.Fatalf("expected ErrCommandPanic, got %v", err)
	}

	if _, err := s.UploadFile(context.Background(), stageFile(t, dir, "n2.txt", "x"), ""); err != nil {
		t.Fatalf("worker should keep serving after a command panic: %v", err)
	}
}

func TestService_ContextCancelWhileWaiting(t *testing.T) {
	mem := remote.NewMemory()
	mem.OpDelay = 300 * time.Millisecond
	s := newTestService(t, mem, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.UploadFile(ctx, stageFile(t, t.TempDir(), "p.txt", "x"), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if n := s.router.Len(); n != 0 {
		t.Errorf("%d slots left after cancel", n)
	}
}

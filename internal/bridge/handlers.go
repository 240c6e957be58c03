package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shaiso/Cloudbox/internal/mq"
	"github.com/shaiso/Cloudbox/internal/repo"
)

// handleUpload отправляет подготовленный файл.
//
//  1. Прогресс задачи = 0
//  2. Отправка с обновлением прогресса
//  3. Запись remote_id/location в метаданные (если задан RecordID)
//  4. Прогресс = 100
//  5. Удаление локального файла
//  6. Событие file.uploaded
//
// Если запись удалили во время отправки, отправленное сообщение
// удаляется, чтобы не остаться без владельца.
func (w *Worker) handleUpload(ctx context.Context, cmd Command, logger *slog.Logger) (*UploadResult, error) {
	taskID := cmd.progressKey()
	w.progress.Start(taskID)

	msg, err := w.client.Send(ctx, cmd.Path, func(current, total int64) {
		w.progress.Report(taskID, current, total)
	})
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", filepath.Base(cmd.Path), err)
	}
	logger.Info("upload sent", "remote_id", msg.ID, "size", msg.Size)

	if cmd.RecordID > 0 && w.records != nil {
		err := w.records.AttachRemote(ctx, cmd.RecordID, msg.ID, msg.Location)
		if errors.Is(err, repo.ErrNotFound) {
			w.dropOrphan(ctx, cmd, msg.ID, logger)
			return nil, fmt.Errorf("record %d: %w", cmd.RecordID, ErrRecordGone)
		}
		if err != nil {
			return nil, fmt.Errorf("update record %d: %w", cmd.RecordID, err)
		}
		logger.Debug("record updated", "record_id", cmd.RecordID, "remote_id", msg.ID)
	}

	w.progress.Complete(taskID)

	// Оставшийся файл подберёт janitor, загрузку это не ломает.
	if err := w.cleanup(cmd.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove staged file", "path", cmd.Path, "error", err)
	}

	w.events.fileUploaded(mq.FileUploadedPayload{
		TaskID:   cmd.TaskID,
		RecordID: cmd.RecordID,
		RemoteID: msg.ID,
		Location: msg.Location,
		Name:     msg.Name,
		Size:     msg.Size,
	})

	return &UploadResult{ID: msg.ID, Location: msg.Location}, nil
}

// dropOrphan удаляет сообщение, запись которого исчезла, и локальный файл.
func (w *Worker) dropOrphan(ctx context.Context, cmd Command, remoteID int64, logger *slog.Logger) {
	logger.Warn("record deleted during upload, removing sent message",
		"record_id", cmd.RecordID,
		"remote_id", remoteID,
	)
	if err := w.client.Delete(ctx, []int64{remoteID}); err != nil {
		logger.Error("failed to remove orphaned message", "remote_id", remoteID, "error", err)
	}
	if err := w.cleanup(cmd.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove staged file", "path", cmd.Path, "error", err)
	}
}

// handleDownload находит сообщение и пишет его в Sink.
// Отсутствующее сообщение — ошибка команды, а не воркера.
func (w *Worker) handleDownload(ctx context.Context, cmd Command) error {
	msg, err := w.client.Lookup(ctx, cmd.RemoteID)
	if err != nil {
		return fmt.Errorf("lookup %d: %w", cmd.RemoteID, err)
	}

	if err := w.client.Download(ctx, msg, cmd.Sink); err != nil {
		return fmt.Errorf("download %d: %w", cmd.RemoteID, err)
	}
	return nil
}

// handleDelete удаляет сообщения одной пачкой.
func (w *Worker) handleDelete(ctx context.Context, cmd Command) error {
	if len(cmd.RemoteIDs) == 0 {
		return nil
	}

	if err := w.client.Delete(ctx, cmd.RemoteIDs); err != nil {
		return fmt.Errorf("delete %d messages: %w", len(cmd.RemoteIDs), err)
	}

	w.events.filesDeleted(mq.FilesDeletedPayload{RemoteIDs: cmd.RemoteIDs})
	return nil
}

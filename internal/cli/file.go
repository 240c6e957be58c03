package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var fileHeaders = []string{"ID", "NAME", "SIZE", "UPLOADED", "CREATED"}

func fileRow(f FileResponse) []string {
	return []string{
		strconv.FormatInt(f.ID, 10),
		f.Name,
		humanSize(f.Size),
		strconv.FormatBool(f.Uploaded),
		f.CreatedAt,
	}
}

// parseFolderFlag разбирает --folder: пусто — корень.
func parseFolderFlag(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid folder id: %s", raw)
	}
	return &id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid file id: %s", a)
		}
		ids[i] = id
	}
	return ids, nil
}

// NewUploadCmd — загрузка файла с ожиданием завершения.
func NewUploadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var folder string
	var noWait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			folderID, err := parseFolderFlag(folder)
			if err != nil {
				return err
			}

			taskID := uuid.NewString()
			name := filepath.Base(args[0])

			accepted, err := client.Upload(args[0], folderID, taskID)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Upload accepted: file %d, task %s", accepted.FileID, accepted.TaskID))

			if !noWait {
				err := client.WaitUpload(accepted.TaskID, interval, func(p int) {
					if p >= 0 {
						out.Progress(name, p)
					}
				})
				if errors.Is(err, ErrUploadFailed) {
					return fmt.Errorf("upload of %s failed, see server logs for task %s", name, accepted.TaskID)
				}
				if err != nil {
					return err
				}
				out.Success("Upload complete")
			}

			out.Print(
				[]string{"FILE_ID", "TASK_ID", "STATUS"},
				[][]string{{strconv.FormatInt(accepted.FileID, 10), accepted.TaskID, accepted.Status}},
				accepted,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Target folder ID (default: root)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return right after the upload is accepted")
	cmd.Flags().DurationVar(&interval, "poll-interval", 500*time.Millisecond, "Progress polling interval")

	return cmd
}

// NewProgressCmd — прогресс загрузки по task ID.
func NewProgressCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "progress TASK_ID",
		Short: "Show upload progress (-1 means failed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := clientFn().Progress(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"TASK_ID", "PROGRESS"},
				[][]string{{args[0], strconv.Itoa(p)}},
				ProgressResponse{TaskID: args[0], Progress: p},
			)
			return nil
		},
	}
}

// NewDownloadCmd — скачивание файла.
func NewDownloadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "download FILE_ID",
		Short: "Download a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if target == "" {
				file, err := client.GetFile(ids[0])
				if err != nil {
					return err
				}
				target = file.Name
			}

			f, err := os.Create(target)
			if err != nil {
				return err
			}

			_, err = client.Download(ids[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(target)
				return err
			}

			out.Success(fmt.Sprintf("Saved to %s", target))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "output", "o", "", "Output path (default: original file name)")

	return cmd
}

// NewRemoveCmd — удаление одного или нескольких файлов.
func NewRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILE_ID...",
		Short: "Delete files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if len(ids) == 1 {
				if err := client.DeleteFile(ids[0]); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("File deleted: %d", ids[0]))
				return nil
			}

			deleted, err := client.BulkDelete(ids)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Files deleted: %d of %d", deleted, len(ids)))
			return nil
		},
	}
}

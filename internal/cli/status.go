package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatusCmd — диагностика сервиса и хранилища.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := clientFn().Status()
			if err != nil {
				return err
			}

			s := status.Storage
			rows := [][]string{
				{"state", s.State},
				{"ready", strconv.FormatBool(s.Ready)},
				{"degraded", strconv.FormatBool(s.Degraded)},
				{"worker_running", strconv.FormatBool(s.WorkerRunning)},
				{"queue_depth", strconv.Itoa(s.QueueDepth)},
				{"pending_replies", strconv.Itoa(s.PendingReplies)},
				{"tracked_tasks", strconv.Itoa(s.TrackedTasks)},
				{"access_key_id", strconv.FormatBool(status.Credentials.AccessKeyID)},
				{"secret_access_key", strconv.FormatBool(status.Credentials.SecretAccessKey)},
				{"session_token", strconv.FormatBool(status.Credentials.SessionToken)},
				{"session_file", strconv.FormatBool(status.SessionFileExists)},
				{"pending_uploads", strconv.FormatInt(status.PendingUploads, 10)},
			}
			if s.StartError != "" {
				rows = append(rows, []string{"error", s.StartError})
			}

			outputFn().Print([]string{"KEY", "VALUE"}, rows, status)
			return nil
		},
	}
}

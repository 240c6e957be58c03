package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cloudbox/internal/mq"
	"github.com/shaiso/Cloudbox/internal/telemetry"
)

// FormatEvent возвращает строку для вывода события о файле.
func FormatEvent(msg *mq.Message) (string, error) {
	event, err := mq.DecodeEvent(msg)
	if err != nil {
		return "", err
	}

	ts := msg.Timestamp.Format("15:04:05")
	switch e := event.(type) {
	case mq.FileUploadedPayload:
		return fmt.Sprintf("%s uploaded  file=%d remote=%d %s (%s)", ts, e.RecordID, e.RemoteID, e.Name, humanSize(e.Size)), nil
	case mq.UploadFailedPayload:
		return fmt.Sprintf("%s failed    file=%d %s: %s", ts, e.RecordID, e.Name, e.Error), nil
	case mq.FilesDeletedPayload:
		ids := make([]string, len(e.RemoteIDs))
		for i, id := range e.RemoteIDs {
			ids[i] = fmt.Sprint(id)
		}
		return fmt.Sprintf("%s deleted   remote=[%s]", ts, strings.Join(ids, ",")), nil
	default:
		return "", fmt.Errorf("unexpected event %T", event)
	}
}

// NewEventsCmd — поток событий о файлах из RabbitMQ.
// Показывает только события, опубликованные, пока команда запущена.
func NewEventsCmd(outputFn func() *Output) *cobra.Command {
	var amqpURL string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow file events (uploaded, failed, deleted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := telemetry.NewLogger(os.Stderr, logLevel, "text")

			conn, err := mq.NewConnection(amqpURL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			tail := mq.NewTail(conn, logger, func(msg *mq.Message) {
				if out.jsonMode {
					out.JSON(msg)
					return
				}
				line, err := FormatEvent(msg)
				if err != nil {
					out.Error(err.Error())
					return
				}
				fmt.Fprintln(out.w, line)
			})

			out.Success(fmt.Sprintf("Listening on %s, Ctrl+C to stop", mq.ExchangeFiles))

			if err := tail.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", mq.DefaultURL(), "RabbitMQ URL")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level for connection messages")

	return cmd
}

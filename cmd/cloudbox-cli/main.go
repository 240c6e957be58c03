// Cloudbox CLI — инструмент командной строки для работы с файлами
// через HTTP API.
//
// Использование:
//
//	cloudbox [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	upload    Загрузить файл
//	progress  Прогресс загрузки
//	download  Скачать файл
//	rm        Удалить файлы
//	ls        Содержимое папки
//	mkdir     Создать папку
//	status    Состояние хранилища
//	events    Поток событий из RabbitMQ
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cloudbox/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "cloudbox",
		Short:         "Cloudbox CLI — file storage backed by a remote store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("CLOUDBOX_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewUploadCmd(clientFn, outputFn),
		cli.NewProgressCmd(clientFn, outputFn),
		cli.NewDownloadCmd(clientFn, outputFn),
		cli.NewRemoveCmd(clientFn, outputFn),
		cli.NewListCmd(clientFn, outputFn),
		cli.NewMkdirCmd(clientFn, outputFn),
		cli.NewStatusCmd(clientFn, outputFn),
		cli.NewEventsCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

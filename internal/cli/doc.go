// Package cli реализует инструмент командной строки Cloudbox.
//
// # Обзор
//
// CLI — клиентская утилита для Cloudbox API. С сервером общается по HTTP
// и не импортирует internal/api; типы ответов продублированы в client.go.
// Исключение — команда events: она читает события о файлах напрямую
// из RabbitMQ через internal/mq.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Загрузка идёт потоково (multipart через io.Pipe),
// после чего WaitUpload опрашивает /uploads/{task_id}/progress до 100
// или -1.
//
//	client := cli.NewClient("http://localhost:8080")
//	accepted, err := client.Upload("report.pdf", nil, taskID)
//	err = client.WaitUpload(accepted.TaskID, time.Second, nil)
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) по умолчанию,
// JSON с флагом --json. Данные идут в stdout, сообщения и прогресс в stderr,
// поэтому работает pipe: cloudbox ls --json | jq .
//
// ## Commands
//
//   - upload, progress, download, rm — файлы
//   - ls, mkdir — папки
//   - status — состояние подключения к хранилищу
//   - events — поток событий из RabbitMQ
//
// Каждая команда создаётся фабричной функцией, принимающей clientFn и
// outputFn — замыкания для ленивого создания Client и Output после
// парсинга PersistentFlags.
package cli

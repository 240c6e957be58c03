// Package scratch управляет локальным каталогом временных файлов.
//
// Принятые от клиента файлы сначала сохраняются сюда (Stage), затем
// воркер хранилища отправляет их и удаляет. Скачивания тоже идут через
// временный файл (DownloadPath). Janitor по cron-расписанию удаляет
// всё, что задержалось дольше MaxAge: например, файлы неудачных загрузок.
package scratch

// Package cli реализует инструмент командной строки Cascade.
//
// # Обзор
//
// Команды делятся на две группы:
//   - job: работа с заданиями через HTTP API (cascade-api)
//   - validate, run, assets: локальные операции без сервера
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Cascade API. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. Типы ответов продублированы, от internal/api
// клиент не зависит.
//
//	client := cli.NewClient("http://localhost:8080")
//	d, err := client.SubmitJob(data, "application/yaml")
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
// Это позволяет использовать pipe: cascade job list --json | jq .
//
// ## Commands
//
//   - job: submit, list, show, steps
//   - validate DIR: проверка каталога определений (--yaml печатает нормализованные)
//   - run DIR: развёртывание каталога с локальными AWS credentials
//   - assets patch: подготовка шаблона ассетов для вторичного канала
//
// Группа job создаётся через NewJobCmd(clientFn, outputFn):
// замыкания создают Client и Output лениво, после парсинга PersistentFlags.
package cli

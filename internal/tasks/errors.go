package tasks

import "errors"

// Ошибки обработчиков.
var (
	// ErrAlreadyExists — стек с таким именем уже есть в регионе.
	// Не является ошибкой шага.
	ErrAlreadyExists = errors.New("stack already exists")

	// ErrMissingHandler — в Handlers не задан один из обработчиков.
	ErrMissingHandler = errors.New("task handler not configured")

	// ErrMissingToken — у шага нет completion token, сигнал отправить некуда.
	ErrMissingToken = errors.New("completion token is empty")

	// ErrSignalRejected — получатель сигнала ответил не 2xx.
	ErrSignalRejected = errors.New("completion signal rejected")

	// ErrTemplateFetch — не удалось получить шаблон стека.
	ErrTemplateFetch = errors.New("template fetch failed")

	// ErrHTTPRequest — HTTP-запрос завершился ошибкой.
	ErrHTTPRequest = errors.New("http request failed")
)

// Package tasks описывает обработчики шага развёртывания.
//
// # Обзор
//
// Шаг развёртывания вызывает четыре независимых обработчика:
//
//   - Preparer — подготовка регион-зависимых настроек до создания стека
//   - Launcher — запрос на создание стека
//   - Monitor — получение «сырого» статуса стека
//   - Signaler — отправка сигнала завершения вызывающей стороне
//
// Обработчики ничего не знают об оркестраторе и не хранят состояние между вызовами.
// AWS-реализации Preparer, Launcher и Monitor лежат в пакете cloud,
// HTTP-реализация Signaler — здесь же (HTTPSignaler).
//
// # Ошибки
//
// Launcher возвращает ErrAlreadyExists, если стек уже существует.
// Оркестратор считает это нормальным продолжением: стек уже создаётся
// или уже создан, можно переходить к опросу.
//
// # Адаптеры
//
// PrepareFunc, LaunchFunc, StatusFunc и SignalFunc позволяют передать
// обычную функцию там, где ожидается интерфейс:
//
//	handlers := tasks.Handlers{
//	    Preparer: tasks.PrepareFunc(func(ctx context.Context, s domain.StepRequest) error { return nil }),
//	    Launcher: launcher,
//	    Monitor:  monitor,
//	    Signaler: tasks.NewHTTPSignaler(tasks.HTTPSignalerConfig{}),
//	}
package tasks

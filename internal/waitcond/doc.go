// Package waitcond — ожидающая сторона для сигналов завершения.
//
// Повторяет поведение wait condition: ожидание Count успешных сигналов
// за Timeout. Сигналы различаются по UniqueId, повторный сигнал с тем же
// UniqueId перезаписывает предыдущий. Любой сигнал FAILURE сразу
// проваливает условие. Условие с Count = 0 выполнено сразу.
//
// Supervisor.Handler принимает сигналы по HTTP:
//
//	PUT /signals/{token}
//	{"Status":"SUCCESS","Reason":"Configuration Complete","UniqueId":"us-east-1/vpc","Data":"..."}
package waitcond

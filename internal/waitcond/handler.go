package waitcond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/Cascade/internal/tasks"
)

// maxSignalSize — верхняя граница тела сигнала.
const maxSignalSize = 64 << 10

// Handler возвращает HTTP-обработчик сигналов.
//
// Ожидает маршрут с параметром {token}: PUT /signals/{token}.
//
//	200 — сигнал принят
//	400 — тело не разобрано или некорректно
//	404 — токен неизвестен
//	410 — условие уже разрешено
func (s *Supervisor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignalSize))
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}

		var doc tasks.SignalDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		err = s.Signal(token, doc)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ErrUnknownToken):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrConditionClosed):
			http.Error(w, err.Error(), http.StatusGone)
		case errors.Is(err, ErrInvalidSignal):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

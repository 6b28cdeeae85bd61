package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPSignaler отправляет сигнал завершения PUT-запросом на completion token.
//
// Completion token — URL wait condition handle (presigned или адрес
// встроенного супервизора /signals/{token}). Тело — JSON SignalDocument.
//
// Content-Type выставляется пустым: presigned URL подписан без него.
type HTTPSignaler struct {
	client *http.Client
	logger *slog.Logger
}

// HTTPSignalerConfig — конфигурация HTTPSignaler.
type HTTPSignalerConfig struct {
	// Client — HTTP-клиент (default: клиент с таймаутом 30s).
	Client *http.Client

	Logger *slog.Logger
}

// NewHTTPSignaler создаёт HTTPSignaler.
func NewHTTPSignaler(cfg HTTPSignalerConfig) *HTTPSignaler {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSignaler{client: client, logger: logger}
}

// Signal отправляет сигнал. Повторов нет: доставка at-most-once.
func (s *HTTPSignaler) Signal(ctx context.Context, req SignalRequest) error {
	if req.CompletionToken == "" {
		return ErrMissingToken
	}

	doc := NewSignalDocument(req)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal signal: %v", ErrHTTPRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.CompletionToken, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}
	httpReq.Header.Set("Content-Type", "")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrSignalRejected, resp.StatusCode, truncate(string(respBody), 200))
	}

	s.logger.Debug("completion signal delivered",
		"stack", req.StackName,
		"status", doc.Status,
	)
	return nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

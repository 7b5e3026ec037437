package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWSTimeout = 10 * time.Second

// WebSocketFetcher performs a single-message pull for TypeWebSocket
// sources: dial, optionally send the configured body as a request frame,
// read one message, close.
type WebSocketFetcher struct {
	dialer  *websocket.Dialer
	timeout time.Duration
}

// NewWebSocketFetcher creates a websocket fetcher with the default
// dialer.
func NewWebSocketFetcher() *WebSocketFetcher {
	return &WebSocketFetcher{
		dialer:  websocket.DefaultDialer,
		timeout: defaultWSTimeout,
	}
}

// Fetch implements Fetcher.
func (f *WebSocketFetcher) Fetch(ctx context.Context, cfg Config) (any, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket data source missing url")
	}

	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	dialCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	conn, resp, err := f.dialer.DialContext(dialCtx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket data source: dial %s: %s: %w", cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket data source: dial %s: %w", cfg.URL, err)
	}
	defer conn.Close()

	if cfg.Body != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(cfg.Body)); err != nil {
			return nil, fmt.Errorf("websocket data source: write: %w", err)
		}
	}

	deadline := time.Now().Add(f.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket data source: read: %w", err)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return string(raw), nil
	}
	return data, nil
}

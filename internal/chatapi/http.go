package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopmate/internal/reliability"
)

// HTTPClient forwards chat operations to the remote assistant service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return SendResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return SendResponse{}, &reliability.TransportError{Op: "chat send", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return SendResponse{}, &reliability.TransportError{Op: "chat send", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return SendResponse{}, &reliability.TransportError{
			Op:     "chat send",
			Status: res.StatusCode,
			Err:    fmt.Errorf("chat http status %d: %s", res.StatusCode, string(body)),
		}
	}

	var out SendResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return SendResponse{}, &reliability.TransportError{Op: "chat send", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

func (c *HTTPClient) History(ctx context.Context, sessionID string) ([]RemoteTurn, error) {
	u := c.baseURL + "/v1/chat/history?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &reliability.TransportError{Op: "chat history", Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &reliability.TransportError{Op: "chat history", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &reliability.TransportError{
			Op:     "chat history",
			Status: res.StatusCode,
			Err:    fmt.Errorf("chat http status %d: %s", res.StatusCode, string(body)),
		}
	}

	var out struct {
		Turns []RemoteTurn `json:"turns"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, &reliability.TransportError{Op: "chat history", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Turns, nil
}

func (c *HTTPClient) ClearSession(ctx context.Context, sessionID string) error {
	u := c.baseURL + "/v1/chat/session/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &reliability.TransportError{Op: "chat clear", Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return &reliability.TransportError{Op: "chat clear", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &reliability.TransportError{
			Op:     "chat clear",
			Status: res.StatusCode,
			Err:    fmt.Errorf("chat http status %d: %s", res.StatusCode, string(body)),
		}
	}
	return nil
}

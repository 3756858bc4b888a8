// Package notify contains thin HTTP clients for the managed delivery
// providers: the push-notification service and the transactional mail
// function. Payloads are explicit tagged structs per notification kind and
// are validated before any request is made.
//
// Both clients are best-effort by contract: callers treat delivery failures
// as log-and-continue, never as a reason to fail the triggering operation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrDisabled is returned when a client has no endpoint configured. Callers
// that treat delivery as best-effort may log it at debug level and move on.
var ErrDisabled = errors.New("notify: provider not configured")

// PushMessage is the single push payload shape accepted by the provider.
type PushMessage struct {
	// Tokens are the registration IDs of the target devices.
	Tokens []string `json:"registration_ids"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	// Data carries structured context for the client app (list/product ids).
	Data map[string]string `json:"data,omitempty"`
}

// Validate checks the payload before it is sent anywhere.
func (m PushMessage) Validate() error {
	if len(m.Tokens) == 0 {
		return errors.New("notify: push message has no target tokens")
	}
	if m.Title == "" && m.Body == "" {
		return errors.New("notify: push message has no content")
	}
	return nil
}

// PushClient delivers push messages through the provider's REST API using a
// server-side API key. The key never reaches end-user clients.
type PushClient struct {
	endpoint string
	apiKey   string
	hc       *http.Client
}

// NewPushClient builds a client for the given provider endpoint. An empty
// endpoint yields a disabled client whose Send returns ErrDisabled.
func NewPushClient(endpoint, apiKey string, timeout time.Duration) *PushClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PushClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		hc:       &http.Client{Timeout: timeout},
	}
}

// Send posts the message to the provider. A non-2xx status is an error; the
// response body is drained so connections are reused.
func (c *PushClient) Send(ctx context.Context, msg PushMessage) error {
	if c == nil || c.endpoint == "" {
		return ErrDisabled
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return postJSON(ctx, c.hc, c.endpoint, c.apiKey, msg)
}

// postJSON marshals v and POSTs it with the provider key attached. Shared by
// the push and mail clients.
func postJSON(ctx context.Context, hc *http.Client, endpoint, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: provider returned status %d", resp.StatusCode)
	}
	return nil
}

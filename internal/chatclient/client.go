// Package chatclient consumes the chat relay's event stream and keeps the
// message list of one organ chat.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
	"github.com/zhouzirui/anatomy-explorer/backend/pkg/lineframe"
	"github.com/zhouzirui/anatomy-explorer/backend/pkg/utils"
)

const (
	askPath    = "/api/ask-organ"
	organsPath = "/api/organs"
)

var (
	// ErrUnterminated means the stream ended before the sentinel frame.
	ErrUnterminated = errors.New("stream closed before [DONE]")
	// ErrMalformedFrame means a data frame was not valid JSON.
	ErrMalformedFrame = errors.New("malformed event frame")
)

// EventError is an {error} frame sent by the relay.
type EventError struct {
	Message string
}

func (e *EventError) Error() string { return "relay error: " + e.Message }

// StatusError is a non-200 answer from the relay, for example a 400 when a
// field is missing.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the relay at baseURL, e.g. "http://localhost:3001".
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Stream posts req and calls onText for every {text} frame in order. It
// returns nil once the sentinel arrives, ErrUnterminated if the body ends
// first, and otherwise the transport, status or frame error that stopped it.
func (c *Client) Stream(ctx context.Context, req chat.Request, onText func(delta string)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post question: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	for line, err := range lineframe.Lines(resp.Body) {
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		payload, ok := dataPayload(line)
		if !ok {
			continue
		}
		if payload == utils.DoneSentinel {
			return nil
		}

		var ev chat.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return fmt.Errorf("%w: %q", ErrMalformedFrame, payload)
		}
		if ev.Error != "" {
			return &EventError{Message: ev.Error}
		}
		if ev.Text != "" {
			onText(ev.Text)
		}
	}
	return ErrUnterminated
}

// Organs fetches the relay's organ catalog in display order.
func (c *Client) Organs(ctx context.Context) ([]organ.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+organsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get organs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var records []organ.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode organs: %w", err)
	}
	return records, nil
}

// dataPayload returns the value of a "data:" field. Blank lines, comments
// and other fields are not data.
func dataPayload(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

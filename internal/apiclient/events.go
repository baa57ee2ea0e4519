package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Event is one realtime frame pushed over the websocket.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Ticket requests a single-use websocket ticket.
func (c *Client) Ticket(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/ws/ticket", nil, &out); err != nil {
		return "", err
	}
	return out.Ticket, nil
}

// Listen opens the realtime socket and calls fn for every event until ctx is
// done or the connection drops.
func (c *Client) Listen(ctx context.Context, fn func(Event)) error {
	ticket, err := c.Ticket(ctx)
	if err != nil {
		return fmt.Errorf("ws ticket: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.Type == "" {
			continue
		}
		fn(ev)
	}
}

// DecodePayload unmarshals an event payload into v.
func DecodePayload[T any](ev Event) (T, error) {
	var v T
	if len(ev.Payload) == 0 {
		return v, errors.New("empty payload")
	}
	err := json.Unmarshal(ev.Payload, &v)
	return v, err
}

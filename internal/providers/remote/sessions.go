package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// ConfirmDeleteAll is the body guard the service requires for bulk deletes
const ConfirmDeleteAll = "YES I AM REALLY DELETING EVERYTHING"

// ListSessions returns the raw session records in server order
func (c *Client) ListSessions(ctx context.Context) ([]json.RawMessage, error) {
	resp, err := c.request(ctx).Get("/sessions")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []json.RawMessage
	if err := c.decode(resp, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// CreateSession posts a new session and returns its server-assigned id
func (c *Client) CreateSession(ctx context.Context, session any) (string, error) {
	resp, err := c.request(ctx).SetBody(session).Post("/sessions")
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.decode(resp, &out); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create session: response carries no id")
	}
	return out.ID, nil
}

// UpdateSession replaces the session stored under id
func (c *Client) UpdateSession(ctx context.Context, id string, session any) error {
	resp, err := c.request(ctx).SetBody(session).Put("/sessions/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if err := check(resp); err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes the session stored under id
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	resp, err := c.request(ctx).Delete("/sessions/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if err := check(resp); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every session on the server
func (c *Client) DeleteAll(ctx context.Context) error {
	resp, err := c.request(ctx).
		SetBody(map[string]string{"confirm": ConfirmDeleteAll}).
		Delete("/sessions/")
	if err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	if err := check(resp); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

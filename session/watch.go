package session

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type serverEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (c *Client) eventsURL(token string) (string, error) {
	u, err := url.Parse(c.baseURL + "/auth/events")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Watch listens for auth changes pushed by the server and runs Refresh on
// each one, so a logout or block in another tab reaches this session. It
// returns when ctx is done or the connection drops; callers reconnect.
func (c *Client) Watch(ctx context.Context) error {
	p, err := c.store.Load()
	if err != nil {
		return err
	}
	if p.Token == "" {
		return errors.New("no session to watch")
	}

	target, err := c.eventsURL(p.Token)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || strings.Contains(err.Error(), "use of closed") {
				return nil
			}
			return err
		}
		if ev.Type != "auth_changed" {
			continue
		}

		c.logger.WithField("reason", ev.Reason).Debug("Server pushed an auth change")
		state, err := c.Refresh(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Session refresh after auth change failed")
			continue
		}
		if !state.LoggedIn() {
			return nil
		}
	}
}

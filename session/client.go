// Package session is the dashboard-side view of who is logged in. It keeps
// the tokens in a Store, resolves the current user and role against the API,
// and broadcasts changes to in-process subscribers.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HSouheill/gym_backend/models"
)

// State is the resolved session. The zero State means nobody is logged in.
type State struct {
	User *models.User
	Role models.Role
}

func (s State) LoggedIn() bool {
	return s.User != nil && s.Role.Valid()
}

// EventKind names the transition that produced an Event
type EventKind string

const (
	EventLogin   EventKind = "login"
	EventLogout  EventKind = "logout"
	EventClear   EventKind = "clear"
	EventRefresh EventKind = "refresh"
)

// Event is broadcast to subscribers on every session transition
type Event struct {
	Kind  EventKind
	State State
}

// APIError is a non-2xx reply from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	store   Store
	logger  *logrus.Logger

	mu    sync.Mutex
	state State

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, store Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		logger:  logrus.StandardLogger(),
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the last resolved session without calling the API
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel of session events and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (c *Client) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan Event, 8)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Client) publish(kind EventKind, state State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- Event{Kind: kind, State: state}:
		default:
			c.logger.WithField("event", kind).Warn("Session subscriber is not keeping up")
		}
	}
}

func (c *Client) setState(kind EventKind, state State) State {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.publish(kind, state)
	return state
}

// do sends a JSON request and decodes the data field of a 2xx reply into out
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	envelope := struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}{}
	// 404/405 from the router may not be JSON
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Login authenticates against the role's endpoint and persists the session
func (c *Client) Login(ctx context.Context, role models.Role, email, password string) (State, error) {
	if !role.Valid() {
		return State{}, fmt.Errorf("invalid role %d", role)
	}

	var result models.AuthResult
	err := c.do(ctx, http.MethodPost, role.RoutePrefix()+"/login", "", models.LoginRequest{
		Email:    email,
		Password: password,
	}, &result)
	if err != nil {
		return State{}, err
	}
	if result.User == nil || result.AccessToken == "" {
		return State{}, errors.New("login response carried no session")
	}

	if err := c.store.Save(Persisted{
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		Role:         role,
	}); err != nil {
		return State{}, err
	}
	return c.setState(EventLogin, State{User: result.User, Role: role}), nil
}

// Logout revokes the session on the server and forgets it locally. The local
// session is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	p, err := c.store.Load()
	if err != nil {
		return err
	}

	if p.Token != "" {
		role := p.Role
		if !role.Valid() {
			role = models.AllRoles[0]
		}
		body := map[string]string{"refreshToken": p.RefreshToken}
		if err := c.do(ctx, http.MethodPost, role.RoutePrefix()+"/logout", p.Token, body, nil); err != nil {
			c.logger.WithError(err).Warn("Server logout failed, clearing local session anyway")
		}
	}

	if err := c.store.Clear(); err != nil {
		return err
	}
	c.setState(EventLogout, State{})
	return nil
}

// Clear forgets the local session without calling the API
func (c *Client) Clear() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.setState(EventClear, State{})
	return nil
}

// Refresh resolves the stored token to exactly one (user, role) pair. "Not
// logged in" is the zero State with a nil error, and that includes a blocked
// account (403); errors are reserved for transport and server failures.
func (c *Client) Refresh(ctx context.Context) (State, error) {
	p, err := c.store.Load()
	if err != nil {
		return State{}, err
	}
	if p.Token == "" {
		return c.setState(EventRefresh, State{}), nil
	}

	user, role, err := c.resolve(ctx, p)
	if statusOf(err) == http.StatusUnauthorized && p.RefreshToken != "" {
		if rotated, ok := c.rotate(ctx, p); ok {
			p = rotated
			user, role, err = c.resolve(ctx, p)
		}
	}
	if err != nil && !sessionRejected(err) {
		return c.State(), err
	}

	if user == nil {
		if err := c.store.Clear(); err != nil {
			return State{}, err
		}
		return c.setState(EventRefresh, State{}), nil
	}

	if role != p.Role {
		c.logger.WithFields(logrus.Fields{
			"hint":     p.Role.String(),
			"resolved": role.String(),
		}).Debug("Rewriting stale role hint")
		p.Role = role
		if err := c.store.Save(p); err != nil {
			return State{}, err
		}
	}
	return c.setState(EventRefresh, State{User: user, Role: role}), nil
}

// resolve asks the unified endpoint first and probes per role only on
// servers that do not have it. A nil user with a nil error means no role
// accepted the token.
func (c *Client) resolve(ctx context.Context, p Persisted) (*models.User, models.Role, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", p.Token, nil, &user)
	switch statusOf(err) {
	case 0:
		if err != nil {
			return nil, 0, err
		}
		if !user.Role.Valid() {
			return nil, 0, errors.New("session response carried no role")
		}
		return &user, user.Role, nil
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return c.probe(ctx, p)
	default:
		return nil, 0, err
	}
}

// sessionRejected reports whether the server refused the session itself,
// as opposed to failing to answer
func sessionRejected(err error) bool {
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func probeOrder(hint models.Role) []models.Role {
	order := make([]models.Role, 0, len(models.AllRoles))
	if hint.Valid() {
		order = append(order, hint)
	}
	for _, role := range models.AllRoles {
		if role != hint {
			order = append(order, role)
		}
	}
	return order
}

// probe tries each role's /auth/me in turn, hinted role first
func (c *Client) probe(ctx context.Context, p Persisted) (*models.User, models.Role, error) {
	for _, role := range probeOrder(p.Role) {
		var user models.User
		err := c.do(ctx, http.MethodGet, role.RoutePrefix()+"/auth/me", p.Token, nil, &user)
		switch statusOf(err) {
		case 0:
			if err != nil {
				return nil, 0, err
			}
			return &user, role, nil
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			continue
		default:
			return nil, 0, err
		}
	}
	return nil, 0, &APIError{Status: http.StatusUnauthorized, Message: "no role accepted the session"}
}

// rotate exchanges the refresh token for a new pair and persists it
func (c *Client) rotate(ctx context.Context, p Persisted) (Persisted, bool) {
	role := p.Role
	if !role.Valid() {
		role = models.AllRoles[0]
	}

	var result models.AuthResult
	err := c.do(ctx, http.MethodPost, role.RoutePrefix()+"/refresh-token", "", models.RefreshTokenRequest{
		RefreshToken: p.RefreshToken,
	}, &result)
	if err != nil || result.AccessToken == "" {
		c.logger.WithError(err).Debug("Refresh token rejected")
		return p, false
	}

	p.Token = result.AccessToken
	p.RefreshToken = result.RefreshToken
	if result.User != nil && result.User.Role.Valid() {
		p.Role = result.User.Role
	}
	if err := c.store.Save(p); err != nil {
		c.logger.WithError(err).Warn("Failed to persist rotated session")
	}
	return p, true
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/common"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Options tune an HTTPClient. Zero values are usable.
type Options struct {
	HTTPClient *http.Client
	// Storage persists the session; nil keeps it in memory only.
	Storage SessionStorage
	Logger  logging.Logger
	// Timeout bounds each request when the caller's context has no deadline.
	Timeout time.Duration
}

// HTTPClient talks to the hosted backend: the auth API under /auth/v1 and
// the row API under /rest/v1. It holds one session at a time and is safe for
// concurrent use.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	storage SessionStorage
	logger  logging.Logger
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	session *Session

	// refreshes collapses concurrent exchanges of the same refresh token;
	// the backend rotates tokens, so a second exchange would be rejected.
	refreshes singleflight.Group

	lmu       sync.Mutex
	listeners map[int]AuthListener
	nextID    int
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, apiKey string, opts Options) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		apiKey:    apiKey,
		http:      opts.HTTPClient,
		storage:   opts.Storage,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		now:       time.Now,
		listeners: make(map[int]AuthListener),
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logging.Nop{}
	}
	c.logger = c.logger.With("module", "backend")
	return c, nil
}

// Restore loads a persisted session, if any, and announces it with
// EventInitialSession.
func (c *HTTPClient) Restore(ctx context.Context) error {
	if c.storage == nil {
		return nil
	}
	s, err := c.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.Info(ctx, "session restored", "user_id", s.User.ID)
	c.emit(EventInitialSession, s)
	return nil
}

func (c *HTTPClient) OnAuthStateChange(fn AuthListener) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			delete(c.listeners, id)
			c.lmu.Unlock()
		})
	}
}

func (c *HTTPClient) emit(event AuthEvent, s *Session) {
	c.lmu.Lock()
	fns := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var s Session
	if err := c.doAuth(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, body, &s); err != nil {
		return nil, err
	}
	if err := c.setSession(ctx, &s); err != nil {
		return nil, err
	}

	c.emit(EventSignedIn, &s)
	return &s, nil
}

// signUpResponse is a session when the project auto-confirms emails and a
// bare user when confirmation is required.
type signUpResponse struct {
	Session
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (c *HTTPClient) SignUp(ctx context.Context, p SignUpParams) (*User, error) {
	body := map[string]any{"email": p.Email, "password": p.Password}
	if len(p.Data) > 0 {
		body["data"] = p.Data
	}

	var resp signUpResponse
	if err := c.doAuth(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		s := resp.Session
		if err := c.setSession(ctx, &s); err != nil {
			return nil, err
		}
		c.emit(EventSignedIn, &s)
		return &s.User, nil
	}

	return &User{ID: resp.ID, Email: resp.Email, UserMetadata: resp.UserMetadata}, nil
}

// SignOut revokes the session on the backend and forgets it locally. A
// session the backend no longer knows (401/403/404) is still dropped; any
// other failure leaves the local session in place and is returned.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if s != nil {
		err := c.doAuthWithToken(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil, s.AccessToken)
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && isGoneStatus(apiErr.Status)) {
			return err
		}
	}

	c.clearSession(ctx)
	c.emit(EventSignedOut, nil)
	return nil
}

func isGoneStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

func (c *HTTPClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	if s == nil {
		return nil, nil
	}
	if !s.Expired(c.now()) {
		cp := *s
		return &cp, nil
	}
	return c.refresh(ctx, s.RefreshToken)
}

// refresh trades a refresh token for a new session. Concurrent callers with
// the same token share one exchange, and a caller holding a token that was
// already rotated gets the current session. On rejection the local session
// is dropped and EventSignedOut emitted.
func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	v, err, _ := c.refreshes.Do(refreshToken, func() (any, error) {
		c.mu.RLock()
		cur := c.session
		c.mu.RUnlock()

		switch {
		case cur == nil:
			return nil, ErrNoSession
		case cur.RefreshToken != refreshToken:
			return cur, nil
		}
		return c.exchange(ctx, refreshToken)
	})
	if err != nil {
		return nil, err
	}

	cp := *v.(*Session)
	return &cp, nil
}

func (c *HTTPClient) exchange(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	err := c.doAuth(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": refreshToken}, &s)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn(ctx, "refresh rejected, signing out", "status", apiErr.Status, "error", apiErr.Message)
			c.clearSession(ctx)
			c.emit(EventSignedOut, nil)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	if err := c.setSession(ctx, &s); err != nil {
		return nil, err
	}
	c.emit(EventTokenRefreshed, &s)
	return &s, nil
}

func (c *HTTPClient) setSession(ctx context.Context, s *Session) error {
	if err := completeFromToken(s, c.now()); err != nil && s.User.ID == "" {
		return err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.Save(ctx, s); err != nil {
			// the session is still usable for this run
			c.logger.Error(ctx, "persist session failed", "error", err)
		}
	}
	return nil
}

func (c *HTTPClient) clearSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.Clear(ctx); err != nil {
			c.logger.Error(ctx, "clear persisted session failed", "error", err)
		}
	}
}

// Rows calls the row API with the current access token (or the anon key when
// signed out). A 401 with a refresh token in hand triggers one refresh and
// one retry.
func (c *HTTPClient) Rows(ctx context.Context, req Request, out any) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()

	token := c.apiKey
	if s != nil {
		token = s.AccessToken
	}

	err := c.doRows(ctx, req, token, out)
	if err == nil || s == nil || s.RefreshToken == "" || !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.logger.Debug(ctx, "row api rejected token, refreshing", "table", req.Table)
	fresh, rerr := c.refresh(ctx, s.RefreshToken)
	if rerr != nil {
		return rerr
	}
	return c.doRows(ctx, req, fresh.AccessToken, out)
}

func (c *HTTPClient) doRows(ctx context.Context, req Request, token string, out any) error {
	hreq, err := c.newRequest(ctx, req.Method, "/rest/v1/"+req.Table, req.Query, req.Body, token)
	if err != nil {
		return err
	}
	if req.Prefer != "" {
		hreq.Header.Set("Prefer", req.Prefer)
	}
	return c.send(hreq, out)
}

// Ping checks that the auth API answers its health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/health", nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.send(req, nil); err != nil {
		if IsBackendError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) doAuth(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.doAuthWithToken(ctx, method, path, query, body, out, "")
}

func (c *HTTPClient) doAuthWithToken(ctx context.Context, method, path string, query url.Values, body, out any, token string) error {
	req, err := c.newRequest(ctx, method, path, query, body, token)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(common.APIKeyHeaderName, c.apiKey)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	ctx := req.Context()
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	c.logger.Debug(ctx, "backend call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

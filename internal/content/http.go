package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
)

// HTTPClient is the live adapter. The session token is attached to every
// request through an oauth2 transport.
type HTTPClient struct {
	base    *url.URL
	rt      http.RoundTripper
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	token *oauth2.Token
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(c *HTTPClient) {
		c.rt = rt
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for degraded records.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// WithToken restores a previously issued session.
func WithToken(token string, expires time.Time) HTTPOption {
	return func(c *HTTPClient) {
		c.token = &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expires}
	}
}

// NewHTTPClient returns a client for the content store at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("content: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("content: base url %q must be absolute", baseURL)
	}
	c := &HTTPClient{
		base:    u,
		rt:      http.DefaultTransport,
		timeout: 15 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsAuthenticated reports whether a non-expired session token is held.
func (c *HTTPClient) IsAuthenticated(_ context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Valid()
}

// ClearAuth drops the session token.
func (c *HTTPClient) ClearAuth(_ context.Context) {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// Token returns the current session, if any.
func (c *HTTPClient) Token() (AuthResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.token.Valid() {
		return AuthResult{}, false
	}
	return AuthResult{Token: c.token.AccessToken, Expires: c.token.Expiry}, true
}

// Authenticate exchanges credentials for a session token.
func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	var resp models.AuthResponse
	body := models.AuthRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/password", nil, body, &resp); err != nil {
		return AuthResult{}, err
	}
	res := AuthResult{Token: resp.Token, Email: resp.Email}
	if resp.Expires != "" {
		exp, err := time.Parse(time.RFC3339, resp.Expires)
		if err != nil {
			return AuthResult{}, apperr.Backend(0, "invalid expiry in auth response", err)
		}
		res.Expires = exp
	}

	c.mu.Lock()
	c.token = &oauth2.Token{AccessToken: res.Token, TokenType: "Bearer", Expiry: res.Expires}
	c.mu.Unlock()
	return res, nil
}

// GetList fetches one page of records.
func (c *HTTPClient) GetList(ctx context.Context, page, pageSize int, filter string) (models.ListResult, error) {
	if err := checkPage(page, pageSize); err != nil {
		return models.ListResult{}, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(pageSize))
	if filter != "" {
		q.Set("filter", filter)
	}
	var raw models.RawListResult
	if err := c.do(ctx, http.MethodGet, "/api/records", q, nil, &raw); err != nil {
		return models.ListResult{}, err
	}
	return models.ToListResult(raw, c.report), nil
}

// GetItem fetches a single record.
func (c *HTTPClient) GetItem(ctx context.Context, id string) (models.Item, error) {
	var raw models.RawRecord
	if err := c.do(ctx, http.MethodGet, "/api/records/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		return models.Item{}, err
	}
	item, report := models.ToItemReport(raw)
	if report != nil {
		c.report(raw, report)
	}
	return item, nil
}

// UpdateFrontmatter replaces the frontmatter of record id.
func (c *HTTPClient) UpdateFrontmatter(ctx context.Context, id string, data frontmatter.Frontmatter) error {
	body := models.UpdateFrontmatterRequest{Data: data.ToMap()}
	return c.do(ctx, http.MethodPatch, "/api/records/"+url.PathEscape(id)+"/frontmatter", nil, body, nil)
}

// UpdateContent replaces the body of record id.
func (c *HTTPClient) UpdateContent(ctx context.Context, id string, data string) error {
	body := models.UpdateContentRequest{Content: data}
	return c.do(ctx, http.MethodPut, "/api/records/"+url.PathEscape(id)+"/content", nil, body, nil)
}

func (c *HTTPClient) report(raw models.RawRecord, report *frontmatter.DegradedError) {
	c.logger.Debug("record frontmatter degraded",
		slog.String("id", raw.ID),
		slog.String("path", raw.Path),
		slog.String("error", report.Error()))
}

// httpClient returns a client carrying the session token when one is held.
func (c *HTTPClient) httpClient() *http.Client {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()

	rt := c.rt
	if tok.Valid() {
		rt = &oauth2.Transport{Source: oauth2.StaticTokenSource(tok), Base: c.rt}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("content: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("content: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperr.Backend(0, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Backend(resp.StatusCode, "decode response", err)
	}
	return nil
}

// statusError maps an error response to the error taxonomy.
func statusError(resp *http.Response) error {
	var eb models.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(data))
	}
	if eb.Error == "" {
		eb.Error = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = apperr.ErrUnauthorized
	case http.StatusNotFound:
		sentinel = apperr.ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		sentinel = apperr.ErrConflict
	default:
		return apperr.Backend(resp.StatusCode, eb.Error, nil)
	}
	return fmt.Errorf("%w: %s", sentinel, eb.Error)
}

var _ Client = (*HTTPClient)(nil)

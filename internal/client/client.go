// Package client is a small HTTP client for the directory API, used by the
// operator CLI.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/go-user-directory/internal/models"
)

const DefaultBaseURL = "http://localhost:8080"

// StatusError is returned for any non-2xx answer. Message is taken from the
// {"message": ...} body when the server sent one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	realIP     string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRealIP sets X-Real-IP on every request, for servers that gate
// operator endpoints by subnet.
func WithRealIP(ip string) Option {
	return func(cl *Client) {
		cl.realIP = ip
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Populate asks the server to generate count users; 0 uses its default.
func (c *Client) Populate(ctx context.Context, count int) (models.PopulateResponse, error) {
	q := url.Values{}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}

	var out models.PopulateResponse
	_, err := c.do(ctx, http.MethodPost, "/populate", q, &out)
	return out, err
}

// DeleteAll drains the directory. On a partial deletion the decoded
// response is returned together with the *StatusError.
func (c *Client) DeleteAll(ctx context.Context) (models.DeleteAllResponse, error) {
	var out models.DeleteAllResponse
	_, err := c.do(ctx, http.MethodDelete, "/deleteAll", nil, &out)
	return out, err
}

// List fetches one page of users. Paging metadata comes from the response
// headers since the body is a bare array.
func (c *Client) List(ctx context.Context, page, limit int) (models.Page, error) {
	var users []models.User
	h, err := c.do(ctx, http.MethodGet, "/users", pageQuery(page, limit), &users)
	if err != nil {
		return models.Page{}, err
	}

	total, _ := strconv.ParseInt(h.Get("X-Total-Count"), 10, 64)
	p, _ := strconv.Atoi(h.Get("X-Page"))
	l, _ := strconv.Atoi(h.Get("X-Limit"))

	return models.NewPage(users, p, l, total), nil
}

func (c *Client) Search(ctx context.Context, f models.SearchFilter, page, limit int) (models.SearchResponse, error) {
	q := pageQuery(page, limit)
	if f.Username != "" {
		q.Set("name", f.Username)
	}
	if f.Email != "" {
		q.Set("email", f.Email)
	}
	if f.Phone != "" {
		q.Set("phone", f.Phone)
	}

	var out models.SearchResponse
	_, err := c.do(ctx, http.MethodGet, "/search", q, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) (models.User, error) {
	var out models.User
	_, err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	_, err := c.do(ctx, http.MethodGet, "/api/internal/stats", nil, &out)
	return out, err
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/ping", nil, nil)
	return err
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// do sends the request and decodes a JSON body into out when out is not nil.
// Error bodies are decoded into out as well so callers can read progress.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) (http.Header, error) {
	fullURL := c.baseURL + path
	if len(q) > 0 {
		fullURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.realIP != "" {
		req.Header.Set("X-Real-IP", c.realIP)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg models.MessageResponse
		if json.Unmarshal(body, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(body))
		}
		if out != nil {
			_ = json.Unmarshal(body, out)
		}
		return resp.Header, &StatusError{Code: resp.StatusCode, Message: msg.Message}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.Header, nil
}

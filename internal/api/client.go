package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"railboard/internal/model"
)

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListQuery describes one page of records to fetch. Zero values are omitted
// from the request so the backend applies its defaults.
type ListQuery struct {
	Search    string
	Status    model.TrainStatus
	Type      model.TrainType
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
}

// TrainPage is the backend's paginated list response. Total counts all
// records matching the filters before pagination.
type TrainPage struct {
	Data  []model.Train `json:"data"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// TrainInput is the attribute set for creating a train. The backend assigns
// the id.
type TrainInput struct {
	TrainNumber      string            `json:"train_number"`
	DepartureStation string            `json:"departure_station"`
	ArrivalStation   string            `json:"arrival_station"`
	DepartureTime    time.Time         `json:"departure_time"`
	ArrivalTime      time.Time         `json:"arrival_time"`
	Status           model.TrainStatus `json:"status"`
	Type             model.TrainType   `json:"type"`
	Platform         string            `json:"platform,omitempty"`
}

// TrainPatch is a partial update. Nil fields are left untouched by the
// backend.
type TrainPatch struct {
	TrainNumber      *string            `json:"train_number,omitempty"`
	DepartureStation *string            `json:"departure_station,omitempty"`
	ArrivalStation   *string            `json:"arrival_station,omitempty"`
	DepartureTime    *time.Time         `json:"departure_time,omitempty"`
	ArrivalTime      *time.Time         `json:"arrival_time,omitempty"`
	Status           *model.TrainStatus `json:"status,omitempty"`
	Type             *model.TrainType   `json:"type,omitempty"`
	Platform         *string            `json:"platform,omitempty"`
}

// Credentials is the backend's login response.
type Credentials struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// TokenFunc supplies the current bearer token, or "" when no session exists.
type TokenFunc func(ctx context.Context) string

// Client is the single choke point for calls to the scheduling backend. It
// attaches the bearer credential on every request and reacts to 401 by firing
// the unauthorized hook once, then re-raising the failure to the caller.
type Client struct {
	base           string
	httpc          *http.Client
	token          TokenFunc
	onUnauthorized func(ctx context.Context)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithTokenSource sets the bearer token supplier.
func WithTokenSource(fn TokenFunc) Option {
	return func(c *Client) { c.token = fn }
}

// WithUnauthorizedHook sets the callback invoked when the backend reports the
// credential invalid or expired. The hook fires at most once per failing call.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for the backend at base, e.g. "http://localhost:3001/api".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTrains fetches one page of trains matching q.
func (c *Client) ListTrains(ctx context.Context, q ListQuery) (*TrainPage, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		params.Set("sort_order", string(q.SortOrder))
	}

	path := "/trains"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page TrainPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list trains: %w", err)
	}
	return &page, nil
}

// GetTrain fetches a single train by id.
func (c *Client) GetTrain(ctx context.Context, id string) (*model.Train, error) {
	var train model.Train
	if err := c.do(ctx, http.MethodGet, "/trains/"+url.PathEscape(id), nil, &train); err != nil {
		return nil, fmt.Errorf("get train %s: %w", id, err)
	}
	return &train, nil
}

// CreateTrain creates a train and returns the full record with the
// server-assigned id.
func (c *Client) CreateTrain(ctx context.Context, input TrainInput) (*model.Train, error) {
	var train model.Train
	if err := c.do(ctx, http.MethodPost, "/trains", input, &train); err != nil {
		return nil, fmt.Errorf("create train: %w", err)
	}
	return &train, nil
}

// UpdateTrain applies a partial update and returns the resulting record.
func (c *Client) UpdateTrain(ctx context.Context, id string, patch TrainPatch) (*model.Train, error) {
	var train model.Train
	if err := c.do(ctx, http.MethodPatch, "/trains/"+url.PathEscape(id), patch, &train); err != nil {
		return nil, fmt.Errorf("update train %s: %w", id, err)
	}
	return &train, nil
}

// DeleteTrain removes a train by id.
func (c *Client) DeleteTrain(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/trains/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete train %s: %w", id, err)
	}
	return nil
}

// Login exchanges credentials for a bearer token and the user profile.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	body := map[string]string{"username": username, "password": password}
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &creds); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &creds, nil
}

// Register creates a new backend account.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// do issues one request. A token, when available, rides in the Authorization
// header; its absence never blocks the request, the backend is authoritative.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return &Error{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readErrorMessage pulls a human-readable message out of an error body,
// tolerating the common {"error": ...} and {"message": ...} shapes.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

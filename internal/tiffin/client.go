package tiffin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/noahxzhu/tiffin-client/internal/model"
)

const DefaultDeliveryDays = 30

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// Client is the single gateway to the tiffin backend. Every method returns
// a Result; failures never surface as Go errors or panics.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Signup(ctx context.Context, name, email, password string) Result {
	body := model.SignupRequest{Name: name, Email: email, Password: password}
	return c.do(ctx, http.MethodPost, "/users/signup", nil, body, false)
}

func (c *Client) Login(ctx context.Context, email, password string) Result {
	body := model.LoginRequest{Email: email, Password: password}
	return c.do(ctx, http.MethodPost, "/users/login", nil, body, false)
}

func (c *Client) GetMySchedule(ctx context.Context, userID string) Result {
	return c.do(ctx, http.MethodGet, "/tiffin/schedule/"+url.PathEscape(userID), nil, nil, true)
}

// UpdateSchedule replaces the weekly schedule. holiday is left out of the
// request when nil.
func (c *Client) UpdateSchedule(ctx context.Context, userID string, weekly model.WeeklySchedule, holiday *model.HolidayMode) Result {
	body := model.ScheduleUpdate{WeeklySchedule: weekly}
	if holiday != nil {
		h := holiday.Normalize()
		body.HolidayMode = &h
	}
	return c.do(ctx, http.MethodPut, "/tiffin/schedule/"+url.PathEscape(userID), nil, body, true)
}

func (c *Client) GetDashboardStats(ctx context.Context) Result {
	return c.do(ctx, http.MethodGet, "/tiffin/dashboard/stats", nil, nil, true)
}

// GetMyDeliveries lists the user's deliveries from the last days days;
// days <= 0 means DefaultDeliveryDays.
func (c *Client) GetMyDeliveries(ctx context.Context, userID string, days int) Result {
	if days <= 0 {
		days = DefaultDeliveryDays
	}
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	return c.do(ctx, http.MethodGet, "/tiffin/deliveries/"+url.PathEscape(userID), q, nil, true)
}

func (c *Client) MarkDelivered(ctx context.Context, deliveryID string) Result {
	return c.do(ctx, http.MethodPatch, "/tiffin/delivery/"+url.PathEscape(deliveryID)+"/delivered", nil, nil, true)
}

func (c *Client) GetAllSchedules(ctx context.Context) Result {
	return c.do(ctx, http.MethodGet, "/tiffin/schedules/all", nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, auth bool) Result {
	start := time.Now()
	reqID := uuid.NewString()
	logger := c.logger.With("request_id", reqID, "method", method, "path", path)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error("Failed to encode request", "error", err)
			return transportFailure(err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		logger.Error("Failed to build request", "error", err)
		return transportFailure(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Request failed", "error", err, "duration", time.Since(start))
		return transportFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("Failed to read response body", "status", resp.StatusCode, "error", err)
		res := transportFailure(err)
		res.Status = resp.StatusCode
		return res
	}

	res := classify(resp.StatusCode, raw)
	logger.Debug("Request finished", "status", resp.StatusCode, "kind", res.Kind.String(), "duration", time.Since(start))
	return res
}

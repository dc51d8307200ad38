// Package backend is the HTTP client for the hosted marketplace backend.
//
// The backend is an opaque collaborator: it owns the database, auth,
// row-level security, and email delivery. This package only issues
// creation requests and authorization checks against it and interprets
// the responses. A non-2xx status or an "error" field in a 2xx body is
// treated as failure.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nuptia/admin/internal/couple"
)

// ErrNotOperator is returned by AuthorizeOperator when the credential is
// valid but does not belong to an admin operator.
var ErrNotOperator = errors.New("caller is not an authorized operator")

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

// Client talks to the hosted backend API.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	// URL is the backend base URL, e.g. "https://api.example.com".
	URL string
	// ServiceKey is the bearer credential for outbound creation requests.
	ServiceKey string
	// RequestTimeout bounds every backend call (default: 30s).
	RequestTimeout time.Duration
}

// New creates a backend client.
func New(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		serviceKey: opts.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiResponse is the envelope the backend wraps responses in. Only the
// error field matters here; everything else is opaque.
type apiResponse struct {
	Error string `json:"error"`
}

// CreateCouple issues one couple creation request. It returns an error for
// transport failures, non-2xx statuses, and 2xx responses whose body
// carries an application-level error message.
func (c *Client) CreateCouple(ctx context.Context, req couple.CreateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode couple: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/couples", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("create couple: %w", err)
	}
	defer resp.Body.Close()

	return interpretResponse(resp)
}

// operatorProfile is the backend's description of the calling user.
type operatorProfile struct {
	Role  string `json:"role"`
	Error string `json:"error"`
}

// AuthorizeOperator checks that token belongs to an admin operator.
// This is an explicit precondition check: callers gate the whole import
// workflow behind it rather than relying on ambient session state.
//
// Returns nil when authorized, ErrNotOperator when the backend answers but
// the caller lacks the admin role, and a wrapped transport error otherwise.
func (c *Client) AuthorizeOperator(ctx context.Context, token string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("authorize operator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrNotOperator
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("authorize operator: backend returned %s", resp.Status)
	}

	var profile operatorProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodySize)).Decode(&profile); err != nil {
		return fmt.Errorf("authorize operator: decode profile: %w", err)
	}
	if profile.Error != "" {
		return fmt.Errorf("authorize operator: %s", profile.Error)
	}
	if profile.Role != "admin" {
		return ErrNotOperator
	}

	return nil
}

// interpretResponse maps an HTTP response onto the success/failure
// contract shared by every backend mutation.
func interpretResponse(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	// Some error responses are not JSON; the raw body is still useful.
	_ = json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if envelope.Error != "" {
			return fmt.Errorf("backend returned %s: %s", resp.Status, envelope.Error)
		}
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if envelope.Error != "" {
		return fmt.Errorf("backend error: %s", envelope.Error)
	}

	return nil
}

// Package remote implements the RecordStore port against the sync service's
// REST API. Every call carries its own timeout and an exponential-backoff
// retry policy; server-side 4xx responses are never retried.
package remote

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
	"time"

	"github.com/cenkalti/backoff/v4"

	"passvault/internal/domain/model"
	"passvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*Client)(nil)

const (
	// DefaultTimeout bounds each individual HTTP attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts is the total number of tries per call.
	DefaultAttempts = 3
	// initialBackoff is the delay before the first retry; it doubles on
	// each subsequent one.
	initialBackoff = 1 * time.Second
)

// Client talks to the sync service. The zero value is not usable; construct
// with NewClient.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	attempts uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAttempts overrides the total number of tries per call.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = uint64(n)
		}
	}
}

// WithHTTPClient injects a custom http.Client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a sync API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
		timeout:  DefaultTimeout,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthy reports whether the sync service answers its liveness probe.
func (c *Client) Healthy(ctx context.Context) bool {
	var ok bool
	err := c.call(ctx, http.MethodGet, "/health", nil, func(status int, _ []byte) error {
		ok = status == http.StatusOK
		return nil
	})
	return err == nil && ok
}

// FindAll fetches every record from the sync service.
func (c *Client) FindAll(ctx context.Context) ([]model.PasswordRecord, error) {
	return c.list(ctx, "")
}

// Search fetches records matching the query; a whitespace-only query lists
// everything, mirroring the local store.
func (c *Client) Search(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	return c.list(ctx, strings.TrimSpace(query))
}

// FindByID fetches a single record. Returns nil, nil when the service
// reports 404.
func (c *Client) FindByID(ctx context.Context, id string) (*model.PasswordRecord, error) {
	var rec *model.PasswordRecord
	err := c.call(ctx, http.MethodGet, "/passwords/"+url.PathEscape(id), nil, func(status int, body []byte) error {
		if status == http.StatusNotFound {
			return nil
		}
		w, err := decodeEnvelope[wireRecord](status, body)
		if err != nil {
			return err
		}
		r, err := fromWire(*w)
		if err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote find %q: %w", id, err)
	}
	return rec, nil
}

// Create posts a new record and returns the service's persisted version.
func (c *Client) Create(ctx context.Context, input model.RecordInput) (*model.PasswordRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	payload := wireRecord{
		Service:  input.Service,
		Username: input.Username,
		Password: input.Password,
		URL:      input.URL,
		Notes:    input.Notes,
		Folder:   input.Folder,
		Tags:     input.Tags,
	}
	if input.ExpiresAt != nil {
		payload.ExpiresAt = input.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	var rec model.PasswordRecord
	err := c.call(ctx, http.MethodPost, "/passwords", payload, func(status int, body []byte) error {
		w, err := decodeEnvelope[wireRecord](status, body)
		if err != nil {
			return err
		}
		rec, err = fromWire(*w)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remote create: %w", err)
	}
	return &rec, nil
}

// Update sends a partial record. A 404 maps to model.ErrNotFound.
func (c *Client) Update(ctx context.Context, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{}
	setIf(payload, "service", patch.Service)
	setIf(payload, "username", patch.Username)
	setIf(payload, "password", patch.Password)
	setIf(payload, "url", patch.URL)
	setIf(payload, "notes", patch.Notes)
	setIf(payload, "folder", patch.Folder)
	if patch.Tags != nil {
		payload["tags"] = patch.Tags
	}
	if patch.ExpiresAt != nil {
		payload["expires_at"] = patch.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	var rec model.PasswordRecord
	err := c.call(ctx, http.MethodPut, "/passwords/"+url.PathEscape(id), payload, func(status int, body []byte) error {
		if status == http.StatusNotFound {
			return fmt.Errorf("record %q: %w", id, model.ErrNotFound)
		}
		w, err := decodeEnvelope[wireRecord](status, body)
		if err != nil {
			return err
		}
		rec, err = fromWire(*w)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remote update: %w", err)
	}
	return &rec, nil
}

// Delete removes a record. The service answers 404 for an unknown ID; the
// client maps that to success so Delete stays idempotent across both stores.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodDelete, "/passwords/"+url.PathEscape(id), nil, func(status int, body []byte) error {
		if status == http.StatusNotFound {
			return nil
		}
		_, err := decodeEnvelope[json.RawMessage](status, body)
		return err
	})
	if err != nil {
		return fmt.Errorf("remote delete %q: %w", id, err)
	}
	return nil
}

// Clear removes every remote record. The API exposes no bulk wipe, so this
// lists and deletes one by one.
func (c *Client) Clear(ctx context.Context) error {
	recs, err := c.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("remote clear: %w", err)
	}
	for _, rec := range recs {
		if err := c.Delete(ctx, rec.ID); err != nil {
			return fmt.Errorf("remote clear: %w", err)
		}
	}
	return nil
}

// Stats derives counts from a full listing; the API has no stats endpoint.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	recs, err := c.FindAll(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	return model.Stats{Total: len(recs), HasAny: len(recs) > 0}, nil
}

// BatchCreate posts the payloads one by one; the REST surface has no batch
// endpoint, so there is no cross-record atomicity here. The first failure
// aborts and names the offending index.
func (c *Client) BatchCreate(ctx context.Context, inputs []model.RecordInput) ([]model.PasswordRecord, error) {
	recs := make([]model.PasswordRecord, 0, len(inputs))
	for i, input := range inputs {
		rec, err := c.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

// BatchUpdate applies the patches one by one, aborting on the first failure.
func (c *Client) BatchUpdate(ctx context.Context, patches []model.PatchByID) ([]model.PasswordRecord, error) {
	recs := make([]model.PasswordRecord, 0, len(patches))
	for i, p := range patches {
		rec, err := c.Update(ctx, p.ID, p.Patch)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (c *Client) list(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	path := "/passwords"
	if query != "" {
		path += "?search=" + url.QueryEscape(query)
	}

	var recs []model.PasswordRecord
	err := c.call(ctx, http.MethodGet, path, nil, func(status int, body []byte) error {
		ws, err := decodeEnvelope[[]wireRecord](status, body)
		if err != nil {
			return err
		}
		recs, err = fromWireAll(*ws)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remote list: %w", err)
	}
	return recs, nil
}

// envelope is the sync API's uniform response shape.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// decodeEnvelope parses a success envelope or turns a failure envelope into
// an *model.APIError.
func decodeEnvelope[T any](status int, body []byte) (*T, error) {
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &model.APIError{Status: status, Message: "malformed response body"}
	}
	if status >= 400 || !env.Success {
		return nil, &model.APIError{Status: status, Message: env.Error}
	}
	return &env.Data, nil
}

// call issues one HTTP request with retries. Network failures and 5xx
// responses are retried with exponential backoff (initial 1s, doubling);
// anything below 500 is handed to the handle callback exactly once.
func (c *Client) call(ctx context.Context, method, path string, payload any, handle func(status int, body []byte) error) error {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = data
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err // network error, retryable
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 500 {
			return &model.APIError{Status: resp.StatusCode, Message: "server error"}
		}

		if err := handle(resp.StatusCode, respBody); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, c.attempts-1), ctx,
	))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
	return nil
}

func setIf(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/touchline/internal/domain/quota"
	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
	"github.com/riskibarqy/touchline/internal/usecase"
)

const maxResponseBytes = 16 << 20

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Identity       usecase.IdentityResolver
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the remote authority. It implements usecase.RemoteAuthority
// and usecase.TierSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	identity   usecase.IdentityResolver
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight[[]byte]
	retryDelay func(attempt int) time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries: max(cfg.MaxRetries, 0),
		identity:   cfg.Identity,
		logger:     logger.Named("remote"),
		breaker:    resilience.NewCircuitBreakerFromConfig(resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)),
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * 500 * time.Millisecond
		},
	}
}

// envelope is the wire form of one record.
type envelope struct {
	Kind     record.Kind     `json:"kind"`
	ID       string          `json:"id"`
	ParentID string          `json:"parentId,omitempty"`
	Record   json.RawMessage `json:"record"`
}

type listResponse struct {
	Data []envelope `json:"data"`
}

func (c *Client) Upsert(ctx context.Context, doc record.Document) error {
	body, err := sonic.Marshal(envelope{
		Kind:     doc.Kind,
		ID:       doc.ID,
		ParentID: doc.ParentID,
		Record:   json.RawMessage(doc.Payload),
	})
	if err != nil {
		return crerr.Wrapf(err, "marshal %s %s", doc.Kind, doc.ID)
	}

	_, err = c.do(ctx, http.MethodPut, recordPath(doc.Kind, doc.ID), "", body)
	return err
}

func (c *Client) Delete(ctx context.Context, kind record.Kind, id string) error {
	_, err := c.do(ctx, http.MethodDelete, recordPath(kind, id), "", nil)
	return err
}

func (c *Client) List(ctx context.Context, kind record.Kind) ([]record.Document, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.get(ctx, kindPath(kind), token)
	if err != nil {
		return nil, err
	}

	var decoded listResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, crerr.Wrapf(err, "decode %s list", kind)
	}

	out := make([]record.Document, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		doc, err := toDocument(kind, item)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed remote record", "kind", kind, "id", item.ID, "error", err)
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Client) FetchLimits(ctx context.Context, ident usecase.Identity) (quota.Limits, error) {
	raw, err := c.get(ctx, "/v1/me/limits", ident.Token)
	if err != nil {
		return quota.Limits{}, err
	}

	var limits quota.Limits
	if err := sonic.Unmarshal(raw, &limits); err != nil {
		return quota.Limits{}, crerr.Wrap(err, "decode limits")
	}
	return limits, nil
}

func toDocument(kind record.Kind, item envelope) (record.Document, error) {
	if item.Kind != "" && item.Kind != kind {
		return record.Document{}, crerr.Newf("record kind %q listed under %q", item.Kind, kind)
	}
	if strings.TrimSpace(item.ID) == "" || len(item.Record) == 0 {
		return record.Document{}, crerr.New("record id and body are required")
	}

	var meta record.Meta
	if err := sonic.Unmarshal(item.Record, &meta); err != nil {
		return record.Document{}, crerr.Wrap(err, "decode record meta")
	}
	meta.ID = item.ID
	meta.Synced = true

	return record.Document{
		Kind:     kind,
		Meta:     meta,
		ParentID: item.ParentID,
		Payload:  append([]byte(nil), item.Record...),
	}, nil
}

// get single-flights identical reads of the same caller.
func (c *Client) get(ctx context.Context, path, token string) ([]byte, error) {
	raw, err, _ := c.flight.Do(path+"|"+token, func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, path, token, nil)
	})
	return raw, err
}

// do sends one request, retrying transient failures. An empty token is
// resolved from the identity layer.
func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: remote base url is not configured", usecase.ErrTransientNetwork)
	}
	if token == "" {
		var err error
		if token, err = c.token(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "remote circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: remote authority is temporarily unavailable: %w", usecase.ErrTransientNetwork, err)
	}

	raw, err := c.execute(ctx, method, c.baseURL+path, token, body)
	c.breaker.Record(err, isCircuitFailure)
	return raw, err
}

func (c *Client) execute(ctx context.Context, method, fullURL, token string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.attempt(ctx, method, fullURL, token, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !isCircuitFailure(err) || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(c.retryDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", usecase.ErrTransientNetwork, ctx.Err())
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "remote request failed", "method", method, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, fullURL, token string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transient(crerr.Wrapf(err, "%s %s", method, redactURL(fullURL)))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transient(crerr.Wrap(err, "read response body"))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case method == http.MethodDelete && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone):
		// never reached the server, or already gone there
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", usecase.ErrUnauthorized, statusError(method, resp.StatusCode, raw))
	case isRetryableStatus(resp.StatusCode):
		return nil, transient(statusError(method, resp.StatusCode, raw))
	default:
		return nil, fmt.Errorf("%w: %w", usecase.ErrRemoteRejected, statusError(method, resp.StatusCode, raw))
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.identity == nil {
		return "", nil
	}
	ident, err := c.identity.Resolve(ctx)
	if err != nil {
		return "", crerr.Wrap(err, "resolve identity")
	}
	if !ident.Authenticated {
		return "", fmt.Errorf("%w: guest identity cannot reach the remote authority", usecase.ErrUnauthorized)
	}
	return ident.Token, nil
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", usecase.ErrTransientNetwork, err)
}

func statusError(method string, status int, body []byte) error {
	return crerr.Newf("%s status=%d body=%s", method, status, abbreviateBody(body))
}

// isCircuitFailure reports outages only. Rejected payloads and expired
// credentials leave the breaker alone.
func isCircuitFailure(err error) bool {
	return stderrors.Is(err, usecase.ErrTransientNetwork)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func recordPath(kind record.Kind, id string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(kindPath(kind))
	_ = buf.WriteByte('/')
	_, _ = buf.WriteString(url.PathEscape(id))
	return buf.String()
}

func kindPath(kind record.Kind) string {
	return "/v1/sync/" + url.PathEscape(string(kind))
}

func abbreviateBody(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 256 {
		return text[:256] + "...(truncated)"
	}
	return text
}

func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("<invalid url %d bytes>", len(raw))
	}
	parsed.User = nil
	parsed.RawQuery = ""
	return parsed.String()
}

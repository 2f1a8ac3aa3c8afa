package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/touchline/internal/platform/cache"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
	"github.com/riskibarqy/touchline/internal/usecase"
)

var errAnubisTransient = crerr.New("anubis transient failure")

// Principal is a verified account.
type Principal struct {
	UserID string
	Email  string
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	IntrospectPath string
	AdminKey       string
	CacheTTL       time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

// Client verifies access tokens against the Anubis account service.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	logger        *logging.Logger
	breaker       *resilience.CircuitBreaker
	principals    *cache.Store[Principal]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	path := cfg.IntrospectPath
	if strings.TrimSpace(path) == "" {
		path = "/v1/auth/introspect"
	}

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, path),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		logger:        logger.Named("anubis"),
		breaker:       resilience.NewCircuitBreakerFromConfig(resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)),
		principals:    cache.NewStore[Principal](cfg.CacheTTL),
	}
}

// VerifyAccessToken resolves token to its account. Verified principals are
// cached by token hash; failures are not.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	return c.principals.GetOrLoad(ctx, hashToken(token), func(ctx context.Context) (Principal, error) {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "anubis circuit breaker rejected request", "state", c.breaker.State())
			return Principal{}, fmt.Errorf("%w: account service is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		principal, err := c.introspect(ctx, token)
		c.breaker.Record(err, isCircuitFailure)
		return principal, err
	})
}

// Forget drops the cached verification of token, for example on sign-out.
func (c *Client) Forget(ctx context.Context, token string) {
	c.principals.Delete(ctx, hashToken(strings.TrimSpace(token)))
}

func (c *Client) introspect(ctx context.Context, token string) (Principal, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return Principal{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return Principal{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Principal{}, dependencyError(crerr.Wrap(err, "request introspection to anubis"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Principal{}, dependencyError(crerr.Wrap(err, "read introspect response"))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return Principal{}, fmt.Errorf("%w: anubis rejected admin key", usecase.ErrDependencyUnavailable)
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return Principal{}, dependencyError(crerr.Newf("anubis introspection failed with status %d", resp.StatusCode))
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return Principal{}, crerr.Wrap(err, "unmarshal introspect response")
	}
	if !decoded.Active {
		return Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return Principal{}, crerr.New("invalid introspect response: user_id is empty")
	}

	return Principal{UserID: decoded.UserID, Email: decoded.Email}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

package pushstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/usecase"
)

type ClientConfig struct {
	BaseURL          string
	HTTPClient       *http.Client
	HandshakeTimeout time.Duration
	// ReadTimeout drops a connection that sent neither frames nor pings.
	ReadTimeout time.Duration
	Logger      *logging.Logger
}

// Client subscribes viewers to the live feed of a match. It implements
// usecase.PushStream.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	dialer      *websocket.Dialer
	readTimeout time.Duration
	logger      *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: httpClient,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		readTimeout: cfg.ReadTimeout,
		logger:      logger.Named("pushstream"),
	}
}

func (c *Client) Connect(ctx context.Context, matchID, token string) (usecase.StreamConn, error) {
	streamURL, err := c.streamURL(matchID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := c.dialer.DialContext(ctx, streamURL, header)
	if err != nil {
		if resp != nil {
			return nil, crerr.Wrapf(err, "dial live stream status=%d", resp.StatusCode)
		}
		return nil, crerr.Wrap(err, "dial live stream")
	}

	conn := newConn(ws, c.readTimeout, c.logger.With("match_id", matchID))
	go conn.readLoop()
	c.logger.DebugContext(ctx, "live stream connected", "match_id", matchID)
	return conn, nil
}

type tokenResponse struct {
	Valid bool `json:"valid"`
}

// CheckToken reports false when the server no longer honours the share
// credential. Transport failures are returned as errors.
func (c *Client) CheckToken(ctx context.Context, matchID, token string) (bool, error) {
	if c.baseURL == "" {
		return false, crerr.New("live stream base url is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/live/"+url.PathEscape(matchID)+"/token", nil)
	if err != nil {
		return false, crerr.Wrap(err, "build token check request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: check live token: %w", usecase.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return false, nil
	case http.StatusOK:
	default:
		return false, crerr.Newf("check live token status=%d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, crerr.Wrap(err, "read token check response")
	}
	var decoded tokenResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return false, crerr.Wrap(err, "decode token check response")
	}
	return decoded.Valid, nil
}

func (c *Client) streamURL(matchID string) (string, error) {
	if c.baseURL == "" {
		return "", crerr.New("live stream base url is not configured")
	}
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", crerr.Wrapf(err, "parse live stream base url %q", c.baseURL)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", crerr.Newf("live stream base url uses unsupported scheme %q", parsed.Scheme)
	}
	base := strings.TrimRight(parsed.EscapedPath(), "/")
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/v1/live/" + matchID + "/stream"
	parsed.RawPath = base + "/v1/live/" + url.PathEscape(matchID) + "/stream"
	return parsed.String(), nil
}

type readResult struct {
	msg usecase.StreamMessage
	err error
}

// conn pumps frames off the socket so Next can honour context cancellation.
type conn struct {
	ws          *websocket.Conn
	readTimeout time.Duration
	logger      *logging.Logger

	frames    chan readResult
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(ws *websocket.Conn, readTimeout time.Duration, logger *logging.Logger) *conn {
	return &conn{
		ws:          ws,
		readTimeout: readTimeout,
		logger:      logger,
		frames:      make(chan readResult, 16),
		closed:      make(chan struct{}),
	}
}

func (c *conn) Next(ctx context.Context) (usecase.StreamMessage, error) {
	select {
	case <-ctx.Done():
		return usecase.StreamMessage{}, ctx.Err()
	case res, ok := <-c.frames:
		if !ok {
			return usecase.StreamMessage{}, io.EOF
		}
		return res.msg, res.err
	}
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *conn) readLoop() {
	defer close(c.frames)

	extend := func() { _ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)) }
	extend()
	c.ws.SetPingHandler(func(data string) error {
		extend()
		return c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("live stream closed unexpectedly", "error", err)
			}
			c.deliver(readResult{err: crerr.Wrap(err, "read live stream")})
			return
		}
		extend()

		msg, err := decodeFrame(raw)
		if err != nil {
			c.logger.Warn("dropping malformed live frame", "error", err)
			continue
		}
		if !c.deliver(readResult{msg: msg}) {
			return
		}
	}
}

func (c *conn) deliver(res readResult) bool {
	select {
	case c.frames <- res:
		return true
	case <-c.closed:
		return false
	}
}

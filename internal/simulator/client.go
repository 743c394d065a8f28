package simulator

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

	"github.com/gorilla/websocket"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// Retry constants for backpressure.
const (
	maxRetries     = 8
	initialBackoff = 20 * time.Millisecond
	maxBackoff     = time.Second
	alertsLimit    = 1000
)

// Stream message types.
const (
	msgHello        = "hello"
	msgDecision     = "decision"
	msgSessionEnded = "session_ended"
)

// Client errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrRetriesExhausted = errors.New("backpressure retries exhausted")
)

// Client talks to a running service over HTTP and WebSocket.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  logger.Logger
	verbose bool
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, verbose bool) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		logger:  logger.Get().Named("simulator.client"),
		verbose: verbose,
	}
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateSession starts a session for driverID and returns its id.
func (c *Client) CreateSession(ctx context.Context, driverID string) (string, error) {
	var out SessionView
	body := map[string]string{"driver_id": driverID}
	if err := c.do(ctx, http.MethodPost, "/sessions", body, &out, http.StatusCreated); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return out.Session.ID, nil
}

// SetSunglasses sets the manual sunglasses override.
func (c *Client) SetSunglasses(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/sunglasses", body, nil, http.StatusOK); err != nil {
		return fmt.Errorf("set sunglasses: %w", err)
	}
	return nil
}

// PostFrames submits one batch. A 429 resubmits the whole batch after a
// backoff; frames already accepted come back as duplicates.
func (c *Client) PostFrames(ctx context.Context, frames []Frame) (AckResponse, int, error) {
	body := map[string][]Frame{"frames": frames}
	backoff := initialBackoff
	for retries := 0; ; retries++ {
		var ack AckResponse
		err := c.do(ctx, http.MethodPost, "/frames", body, &ack, http.StatusAccepted, http.StatusOK)
		if err == nil {
			return ack, retries, nil
		}
		if !isBackpressure(err) {
			return AckResponse{}, retries, fmt.Errorf("post frames: %w", err)
		}
		if retries >= maxRetries {
			return AckResponse{}, retries, fmt.Errorf("post frames: %w", ErrRetriesExhausted)
		}
		select {
		case <-ctx.Done():
			return AckResponse{}, retries, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Session fetches a session with its live snapshot.
func (c *Client) Session(ctx context.Context, id string) (SessionView, error) {
	var out SessionView
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return SessionView{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

// Alerts fetches the alert summary of a session.
func (c *Client) Alerts(ctx context.Context, id string) (AlertSummary, error) {
	var out struct {
		Summary AlertSummary `json:"summary"`
	}
	path := fmt.Sprintf("/sessions/%s/alerts?limit=%d", url.PathEscape(id), alertsLimit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return AlertSummary{}, fmt.Errorf("get alerts: %w", err)
	}
	return out.Summary, nil
}

// EndSession ends a session.
func (c *Client) EndSession(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Subscription collects the decisions streamed for one session.
type Subscription struct {
	conn      *websocket.Conn
	decisions []model.Decision
	done      chan struct{}
	err       error
}

// Subscribe opens the decision stream of a session and waits for the hello.
func (c *Client) Subscribe(ctx context.Context, id string) (*Subscription, error) {
	u, err := url.Parse(c.baseURL + "/stream")
	if err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"session_id": {id}}.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}

	var hello struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("stream handshake: %w", err)
	}
	if hello.Type != msgHello {
		_ = conn.Close()
		return nil, fmt.Errorf("stream handshake: expected %s, got %q", msgHello, hello.Type)
	}

	s := &Subscription{conn: conn, done: make(chan struct{})}
	go s.read()
	return s, nil
}

func (s *Subscription) read() {
	defer close(s.done)
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
			}
			return
		}
		switch msg.Type {
		case msgDecision:
			var d model.Decision
			if err := json.Unmarshal(msg.Payload, &d); err != nil {
				s.err = fmt.Errorf("decode decision: %w", err)
				return
			}
			s.decisions = append(s.decisions, d)
		case msgSessionEnded:
			return
		}
	}
}

// Wait blocks until the stream ends or ctx is done and returns the
// decisions received so far.
func (s *Subscription) Wait(ctx context.Context) ([]model.Decision, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		_ = s.conn.Close()
		<-s.done
		return s.decisions, ctx.Err()
	}
	_ = s.conn.Close()
	return s.decisions, s.err
}

// Close drops the stream without waiting for the session to end.
func (s *Subscription) Close() {
	_ = s.conn.Close()
	<-s.done
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%d: %s", e.status, e.body)
}

func (e *statusError) Unwrap() error { return ErrUnexpectedStatus }

func isBackpressure(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusTooManyRequests
}

// do sends a JSON request and decodes the response into out when the
// status is one of want.
func (c *Client) do(ctx context.Context, method, path string, in, out any, want ...int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if c.verbose {
		c.logger.Debug(ctx, "request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode),
			logger.Duration("took", time.Since(start)),
		)
	}

	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package janus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/janusgate/backend/internal/config"
)

// Janus error codes that mean the session or handle is gone and must be
// re-established.
const (
	errCodeSessionNotFound = 458
	errCodeHandleNotFound  = 459
)

const videoroomPlugin = "janus.plugin.videoroom"

var (
	// ErrGatewayUnreachable covers connection and timeout failures: the
	// request may never have reached Janus, so callers can safely retry.
	ErrGatewayUnreachable = errors.New("janus gateway unreachable")

	// ErrUnexpectedResponse means Janus answered with a shape this client
	// does not recognize. That is contract drift, not a transient failure.
	ErrUnexpectedResponse = errors.New("unexpected janus response")
)

// GatewayError is a failure Janus itself reported, either as a top-level
// error envelope or as a videoroom error inside plugindata.
type GatewayError struct {
	Code   int
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("janus error: %d %s", e.Code, e.Reason)
}

// SessionExpired reports whether the error indicates a dead session or
// handle that the session manager should rebuild.
func (e *GatewayError) SessionExpired() bool {
	return e.Code == errCodeSessionNotFound || e.Code == errCodeHandleNotFound
}

// request is the Janus HTTP envelope. Every call carries a fresh transaction
// id which the gateway echoes back.
type request struct {
	Janus       string         `json:"janus"`
	Transaction string         `json:"transaction"`
	SessionID   int64          `json:"session_id,omitempty"`
	HandleID    int64          `json:"handle_id,omitempty"`
	Plugin      string         `json:"plugin,omitempty"`
	Body        map[string]any `json:"body,omitempty"`
}

type response struct {
	Janus       string       `json:"janus"`
	Transaction string       `json:"transaction"`
	Data        *idData      `json:"data"`
	Plugindata  *pluginData  `json:"plugindata"`
	Error       *errorDetail `json:"error"`
}

type idData struct {
	ID int64 `json:"id"`
}

type pluginData struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

type errorDetail struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// videoroom plugin responses report failures inside plugindata.data rather
// than in the top-level envelope.
type pluginError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error"`
}

// Client speaks the Janus JSON-over-HTTP envelope. It is stateless; session
// and handle ids live in the Manager.
type Client struct {
	serverURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Janus API client with the configured per-call timeout.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		serverURL: cfg.JanusServerURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.JanusCallTimeout) * time.Second,
		},
		logger: logger,
	}
}

// CreateSession asks Janus for a new control session.
func (c *Client) CreateSession(ctx context.Context) (int64, error) {
	resp, err := c.roundTrip(ctx, request{Janus: "create"})
	if err != nil {
		return 0, err
	}
	if resp.Janus != "success" || resp.Data == nil || resp.Data.ID == 0 {
		return 0, fmt.Errorf("%w: create returned %q", ErrUnexpectedResponse, resp.Janus)
	}
	return resp.Data.ID, nil
}

// Attach binds a videoroom plugin handle to an existing session.
func (c *Client) Attach(ctx context.Context, sessionID int64) (int64, error) {
	resp, err := c.roundTrip(ctx, request{
		Janus:     "attach",
		SessionID: sessionID,
		Plugin:    videoroomPlugin,
	})
	if err != nil {
		return 0, err
	}
	if resp.Janus != "success" || resp.Data == nil || resp.Data.ID == 0 {
		return 0, fmt.Errorf("%w: attach returned %q", ErrUnexpectedResponse, resp.Janus)
	}
	return resp.Data.ID, nil
}

// KeepAlive pings a session so Janus' idle reaper leaves it alone.
func (c *Client) KeepAlive(ctx context.Context, sessionID int64) error {
	resp, err := c.roundTrip(ctx, request{
		Janus:     "keepalive",
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	if resp.Janus != "ack" && resp.Janus != "success" {
		return fmt.Errorf("%w: keepalive returned %q", ErrUnexpectedResponse, resp.Janus)
	}
	return nil
}

// Message sends a synchronous videoroom request and returns the raw
// plugindata.data payload. Videoroom-level errors surface as *GatewayError.
func (c *Client) Message(ctx context.Context, sessionID, handleID int64, body map[string]any) (json.RawMessage, error) {
	resp, err := c.roundTrip(ctx, request{
		Janus:     "message",
		SessionID: sessionID,
		HandleID:  handleID,
		Body:      body,
	})
	if err != nil {
		return nil, err
	}
	if resp.Janus != "success" || resp.Plugindata == nil || len(resp.Plugindata.Data) == 0 {
		return nil, fmt.Errorf("%w: message returned %q", ErrUnexpectedResponse, resp.Janus)
	}

	var perr pluginError
	if err := json.Unmarshal(resp.Plugindata.Data, &perr); err == nil && perr.ErrorCode != 0 {
		return nil, &GatewayError{Code: perr.ErrorCode, Reason: perr.ErrorMsg}
	}

	return resp.Plugindata.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	req.Transaction = uuid.NewString()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("⚠️ [Janus] Request failed", "kind", req.Janus, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		// The far end answered but rejected the request outright.
		return nil, &GatewayError{Code: httpResp.StatusCode, Reason: string(raw)}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if resp.Transaction != req.Transaction {
		return nil, fmt.Errorf("%w: transaction mismatch", ErrUnexpectedResponse)
	}

	if resp.Janus == "error" {
		if resp.Error == nil {
			return nil, fmt.Errorf("%w: error envelope without detail", ErrUnexpectedResponse)
		}
		c.logger.Warn("⚠️ [Janus] Gateway reported error",
			"kind", req.Janus,
			"code", resp.Error.Code,
			"reason", resp.Error.Reason,
		)
		return nil, &GatewayError{Code: resp.Error.Code, Reason: resp.Error.Reason}
	}

	return &resp, nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tgrelay/pkg/config"
)

const (
	processMessagePath = "/process-message"
	healthPath         = "/health"

	// DefaultUsername is sent when the sender has no display name.
	DefaultUsername = "Unknown"

	textPreviewLimit = 50
	bodyPreviewLimit = 512
)

// Request is the body of POST /process-message.
type Request struct {
	TelegramID string `json:"telegram_id"`
	Username   string `json:"username"`
	Message    string `json:"message"`
}

// response is the body returned by /process-message on success. Success is a
// pointer so a payload without it is rejected as malformed.
type response struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// Client talks to the bot service over HTTP and classifies its answers.
type Client struct {
	http           *resty.Client
	baseURL        string
	requestTimeout time.Duration
	healthTimeout  time.Duration
	log            *slog.Logger
}

func New(cfg config.BackendConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "backend.client")

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		baseURL = config.DefaultBackendURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})

	return &Client{
		http:           httpClient,
		baseURL:        baseURL,
		requestTimeout: cfg.RequestTimeout(),
		healthTimeout:  cfg.HealthTimeout(),
		log:            log,
	}
}

// BaseURL returns the bot service root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send forwards one message to the bot service and classifies the result.
//
// A 403 is reported as an Unauthorized outcome with a nil error. Failures that
// cannot be classified return an Unexpected outcome together with the same error.
func (c *Client) Send(ctx context.Context, senderID string, senderName string, text string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	payload := NewRequest(senderID, senderName, text)
	log := c.log.With("operation", "process_message", "telegram_id", payload.TelegramID)
	startedAt := time.Now()
	log.Info("Sending message to bot service", "message", Preview(text, textPreviewLimit))

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(processMessagePath)
	if err != nil {
		err = classifyTransportError(err)
		log.Error("Error communicating with bot service",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"timeout", errors.Is(err, ErrTimeout),
			"error", err,
		)
		return Unexpected(err), err
	}

	status := resp.StatusCode()
	if status == http.StatusForbidden {
		log.Info("Sender not authorized by bot service", "username", payload.Username, "status", status)
		return Unauthorized(), nil
	}

	if status < 200 || status >= 300 {
		err := &StatusError{StatusCode: status, Body: Preview(string(resp.Body()), bodyPreviewLimit)}
		args := []any{"duration_ms", time.Since(startedAt).Milliseconds(), "status", status, "error", err.Error()}
		if err.Body != "" {
			args = append(args, "response_body", err.Body)
		}
		log.Error("Bot service returned error status", args...)
		return Unexpected(err), err
	}

	outcome, err := classifyBody(resp.Body())
	if err != nil {
		log.Error("Unusable bot service response",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"status", status,
			"error", err,
			"response_body", Preview(string(resp.Body()), bodyPreviewLimit),
		)
		return Unexpected(err), err
	}

	log.Info("Bot service responded",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"outcome", outcome.Kind.String(),
		"reply", Preview(outcome.Reply, textPreviewLimit),
	)

	return outcome, nil
}

// NewRequest builds the processing request for one inbound message.
func NewRequest(senderID string, senderName string, text string) Request {
	username := strings.TrimSpace(senderName)
	if username == "" {
		username = DefaultUsername
	}

	return Request{
		TelegramID: senderID,
		Username:   username,
		Message:    text,
	}
}

// classifyBody maps a 2xx body into Handled or NotRecognized.
func classifyBody(body []byte) (Outcome, error) {
	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Success == nil {
		return Outcome{}, fmt.Errorf("%w: missing success field", ErrMalformedResponse)
	}
	if payload.Message == "" {
		return Outcome{}, ErrNoContent
	}

	if *payload.Success {
		return Handled(payload.Message), nil
	}
	return NotRecognized(payload.Message), nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("send to bot service: %w", err)
}

// Preview returns at most limit runes of text, marking truncation.
func Preview(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}

	return string(runes[:limit]) + "..."
}

// restyLogger routes resty's internal messages into slog at debug level; the
// client logs its own classified errors.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Debug("resty: "+strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Debug("resty: "+strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug("resty: "+strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

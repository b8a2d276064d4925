package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	_ Sender = (*HTTPSender)(nil)
	_ Sender = (*LogSender)(nil)
)

// HTTPSender posts messages as JSON to a push gateway.
type HTTPSender struct {
	url        string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSender creates a sender for url. perSecond <= 0 disables rate limiting.
func NewHTTPSender(url, token, userAgent string, perSecond float64, httpClient *http.Client) *HTTPSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &HTTPSender{
		url:        url,
		token:      token,
		userAgent:  userAgent,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	return nil
}

// LogSender only logs messages. Used when no push gateway is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if msg.Notification == nil {
		slog.Info("Silent message", "topic", msg.Topic, "slug", msg.Data["slug"], "ping", msg.IsPing())
		return nil
	}
	slog.Info("Notification", "topic", msg.Topic, "slug", msg.Data["slug"], "title", msg.Notification.Title)
	return nil
}

// Package notification implements delivery of reminders to frame clients.
// The frame host gives each opted-in user an opaque token+URL pair; sending
// is a single JSON POST to that URL.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	domain "github.com/stillmind/stillmind-hub/internal/domain/notification"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/pkg/circuitbreaker"
)

// sendRequest is the frame-host notification payload.
type sendRequest struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

// SenderConfig configures the direct sender.
type SenderConfig struct {
	// TargetURL is the app URL the notification opens when tapped.
	TargetURL string

	// RequestTimeout bounds a single send.
	RequestTimeout time.Duration

	// BreakerFailureThreshold is the number of consecutive failures before
	// sends start failing fast.
	BreakerFailureThreshold int

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// DefaultSenderConfig returns sensible defaults.
func DefaultSenderConfig(targetURL string) SenderConfig {
	return SenderConfig{
		TargetURL:               targetURL,
		RequestTimeout:          10 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}
}

// DirectSender implements the domain Sender contract with a plain HTTP POST
// to the delivery URL. A circuit breaker around the endpoint keeps a dead
// host from being hammered during a dispatch run.
type DirectSender struct {
	config     SenderConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewDirectSender creates a DirectSender.
func NewDirectSender(config SenderConfig, logger *slog.Logger) *DirectSender {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}

	s := &DirectSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}

	s.breaker = circuitbreaker.New("notification-endpoint",
		circuitbreaker.WithFailureThreshold(config.BreakerFailureThreshold),
		circuitbreaker.WithTimeout(config.BreakerTimeout),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	)

	return s
}

// Send posts the notification payload to the delivery URL.
// Success is strictly a 200 response; anything else is a SendFailure.
func (s *DirectSender) Send(ctx context.Context, addr domain.Address, title, body string) error {
	if !addr.Valid() {
		return shared.NewDomainError("notification", "Send",
			shared.ErrSendFailed, "incomplete delivery address")
	}

	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.post(ctx, addr, title, body)
	})
}

func (s *DirectSender) post(ctx context.Context, addr domain.Address, title, body string) error {
	payload := sendRequest{
		NotificationID: uuid.New().String(),
		Title:          title,
		Body:           body,
		TargetURL:      s.config.TargetURL,
		Tokens:         []string{addr.Token},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return shared.WrapError("notification", "Send",
			shared.ErrSendFailed, "encoding payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr.URL, bytes.NewReader(data))
	if err != nil {
		return shared.WrapError("notification", "Send",
			shared.ErrSendFailed, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("notification", "Send",
			shared.ErrSendFailed, "posting to delivery url", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return shared.NewDomainError("notification", "Send",
			shared.ErrSendFailed, fmt.Sprintf("delivery url returned status %d", resp.StatusCode))
	}

	return nil
}
